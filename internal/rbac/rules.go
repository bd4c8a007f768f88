package rbac

// Default policy. Instructors and admins are the privileged roles of the quiz core.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"quiz:attempt",
		"user:change_password",
	},
	"instructor": {
		"quiz:*",
		"events:list",
		"users:list",
		"enrollments:manage",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
