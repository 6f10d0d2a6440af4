// Package billing provides domain models for subscription state, the durable
// billing-event inbox, usage metering, and alerting in a multi-tenant SaaS
// application.
//
// This package implements the billing bounded context, which is responsible for:
//   - Mirroring the external billing provider's subscription state locally
//   - Recording every inbound billing webhook durably before it is interpreted
//   - Incrementing per-tenant usage counters
//   - Raising deduplicated alerts when something needs operator attention
//
// Key Aggregates:
//   - Subscription: local mirror of a provider subscription; its status is
//     owned by the reconciliation component once created
//   - BillingEvent: durable inbox row for one inbound webhook, never deleted
//   - Alert: an operator-facing condition with a dedup key
//
// The billing domain integrates with:
//   - Identity domain: the tenant lifecycle reacts to payment state changes
//   - Interfaces layer: webhook ingestion and reconciliation endpoints
package billing
