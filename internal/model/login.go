package model

// LoginStatus tags the outcome of a login operation.
type LoginStatus string

const (
	// LoginAuthenticated means all required factors are satisfied and a
	// session token was issued.
	LoginAuthenticated LoginStatus = "authenticated"
	// LoginStepUpRequired means the password matched but a second factor
	// must be completed before a session is issued.
	LoginStepUpRequired LoginStatus = "step-up-required"
)

// LoginResult is the tagged outcome of a login operation. SessionToken and
// User are set when Status is LoginAuthenticated; ChallengeToken is set when
// Status is LoginStepUpRequired. Call sites must handle both branches.
type LoginResult struct {
	Status         LoginStatus
	SessionToken   string
	ChallengeToken string
	User           UserSummary
}

// TOTPEnrollment is returned when TOTP enrollment begins. QRCode is a PNG
// rendering of URI.
type TOTPEnrollment struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	QRCode []byte `json:"qrCode"`
}
