package taskname

const (
	// Verification tasks
	ParticipationVerify = "participation:verify"

	// Queues
	QueueVerification = "verification"
)
