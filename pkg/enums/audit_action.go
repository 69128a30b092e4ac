package enums

// AuditAction labels a compensating or destructive mutation recorded in the
// audit log.
type AuditAction string

const (
	AuditActionPaymentExpired    AuditAction = "payment_expired"
	AuditActionMemberRemoved     AuditAction = "member_removed"
	AuditActionPoolFinalized     AuditAction = "pool_finalized"
	AuditActionPaymentAfterClose AuditAction = "payment_after_close"
)

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}
