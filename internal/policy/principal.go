package policy

// Principal is the verified identity attached to a request.
type Principal struct {
	UserID   int64  `json:"userId"`
	Login    string `json:"login"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}

// CanViewOrdersOf reports whether the caller may see orders owned by login.
func (p Principal) CanViewOrdersOf(login string) bool {
	return p.Role.IsStaff() || (p.Login != "" && p.Login == login)
}

func (p Principal) CanMutateCatalog() bool {
	return p.Role.CanMutateCatalog()
}

func (p Principal) CanMutateOrderLifecycle() bool {
	return p.Role.CanMutateOrderLifecycle()
}

func (p Principal) CanPlaceOrder() bool {
	return p.Role.CanPlaceOrder()
}
