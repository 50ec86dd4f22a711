package entity

// Trip request status values, mirroring the workflow states
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Role values stored on users
const (
	RoleEmployee = "PEGAWAI"
	RoleHR       = "DIVISI-SDM"
	RoleAdmin    = "ADMIN"
)

// History action values
const (
	ActionSubmit  = "SUBMIT"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// DateLayout is the calendar date format used for trip dates on the wire and in storage
const DateLayout = "2006-01-02"
