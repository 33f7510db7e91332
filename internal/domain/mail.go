package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type AccountApprovedMailData struct {
	FullName string `json:"fullName"`
}

type NewAccountMailData struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegistrationReceivedMailData struct {
	FullName   string `json:"fullName"`
	EmployeeID string `json:"employeeId"`
}
