package security

import "fmt"

// User is the resolved identity for one request. Groups are fixed at
// resolution time and trusted as-is downstream.
type User struct {
	Role   string
	Name   string
	Groups GroupSet
}

// Simulated role table. Production would resolve this from AD/LDAP/SSO;
// the service only consumes the resolved role + permitted set.
var userRoles = map[string]User{
	"admin": {
		Role:   "admin",
		Name:   "Admin",
		Groups: GroupSet{"GLOBAL_AUDIT", "APAC_AUDIT", "EMEA_AUDIT", AllGroupsSentinel},
	},
	"apac_auditor": {
		Role:   "apac_auditor",
		Name:   "APAC Auditor",
		Groups: GroupSet{"APAC_AUDIT", "GLOBAL_AUDIT"},
	},
	"emea_auditor": {
		Role:   "emea_auditor",
		Name:   "EMEA Auditor",
		Groups: GroupSet{"EMEA_AUDIT", "GLOBAL_AUDIT"},
	},
	"viewer": {
		Role:   "viewer",
		Name:   "Viewer",
		Groups: GroupSet{"GLOBAL_AUDIT"},
	},
}

const DefaultRole = "admin"

func ResolveRole(role string) (User, error) {
	if role == "" {
		role = DefaultRole
	}
	user, ok := userRoles[role]
	if !ok {
		return User{}, fmt.Errorf("unknown role: %s", role)
	}
	return user, nil
}
