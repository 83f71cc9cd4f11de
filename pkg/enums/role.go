package enums

// Role identifies who a bearer token belongs to.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return r == RoleAdmin || r == RoleCustomer }
