package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPendingValidation = "PENDING_VALIDATION"
	OrderStatusValidated         = "VALIDATED"
	OrderStatusInProgress        = "IN_PROGRESS"
	OrderStatusReady             = "READY"
	OrderStatusServed            = "SERVED"
	OrderStatusReceived          = "RECEIVED"
	OrderStatusPaid              = "PAID"
	OrderStatusCancelled         = "CANCELLED"
)

const (
	TableStatusFree     = "FREE"
	TableStatusOccupied = "OCCUPIED"
	TableStatusReserved = "RESERVED"
)

// ── Actor roles (carried in the JWT session, immutable for its duration) ──

const (
	RoleDiner   = "DINER"
	RoleWaiter  = "WAITER"
	RoleCook    = "COOK"
	RoleManager = "MANAGER"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash   = "CASH"
	PaymentMethodCard   = "CARD"
	PaymentMethodOnline = "ONLINE"
)
