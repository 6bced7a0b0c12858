package role

// Role is a user role as carried in the backend's token claims.
type Role string

const (
	Student   Role = "student"
	Professor Role = "professor"
	Manager   Role = "manager"
)

// ranks defines the total order student < professor < manager.
// Page authorization is exact-match; the gateway's own admin endpoints
// admit the required rank and above.
var ranks = map[Role]int{
	Student:   1,
	Professor: 2,
	Manager:   3,
}

// landingPaths maps each role to its post-login landing route.
var landingPaths = map[Role]string{
	Student:   "/student",
	Professor: "/professor/dashboard",
	Manager:   "/dashboard",
}

// Parse converts a raw claim string to a Role.
func Parse(s string) (Role, bool) {
	r := Role(s)
	_, ok := ranks[r]
	return r, ok
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := ranks[r]
	return ok
}

// Rank returns the role's position in the total order, 0 for unknown roles.
func (r Role) Rank() int {
	return ranks[r]
}

// AtLeast reports whether the role ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank() && r.Valid()
}

// LandingPath returns the route a user of this role lands on after login.
// Unrecognized roles fall back to the site root.
func (r Role) LandingPath() string {
	if path, ok := landingPaths[r]; ok {
		return path
	}
	return "/"
}

func (r Role) String() string {
	return string(r)
}
