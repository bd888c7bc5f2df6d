package model

// Requester is the verified caller of an operation. UserID is empty for
// anonymous calls.
type Requester struct {
	UserID        string
	Email         string
	EmailVerified bool
	AdminClaim    bool
	IP            string
}

func (r Requester) Authenticated() bool {
	return r.UserID != ""
}
