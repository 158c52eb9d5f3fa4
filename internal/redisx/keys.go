package redisx

import "time"

const (
	// Single-flight sync fence: sync:lock:{supplier_id} -> lock token
	KeySyncLock = "sync:lock:%s"

	// Supplier push idempotency shortcut: idem:push:{order_id}:{supplier_id} -> remote_order_id
	KeyPushIdem = "idem:push:%s:%s"

	// Last link-check report: linkcheck:report -> report JSON
	KeyLinkReport = "linkcheck:report"
)

var (
	TTLPushIdem   = 24 * time.Hour
	TTLLinkReport = 48 * time.Hour
)
