package models

import "strings"

// Role is a member's role inside one project.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleViewer    Role = "viewer"
)

// Action is something a member may attempt on a project or its children.
type Action string

const (
	ActionViewProject     Action = "view_project"
	ActionManageProject   Action = "manage_project"
	ActionManageMembers   Action = "manage_members"
	ActionManageMonitors  Action = "manage_monitors"
	ActionManageFiles     Action = "manage_files"
	ActionReplyComment    Action = "reply_comment"
	ActionModerateComment Action = "moderate_comment"
)

var capabilities = map[Role]map[Action]bool{
	RoleAdmin: {
		ActionViewProject:     true,
		ActionManageProject:   true,
		ActionManageMembers:   true,
		ActionManageMonitors:  true,
		ActionManageFiles:     true,
		ActionReplyComment:    true,
		ActionModerateComment: true,
	},
	RoleModerator: {
		ActionViewProject:     true,
		ActionReplyComment:    true,
		ActionModerateComment: true,
	},
	RoleViewer: {
		ActionViewProject: true,
	},
}

// ParseRole accepts the roles of the allow-list. "editor" is the legacy
// name for moderator.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "moderator", "editor":
		return RoleModerator, true
	case "viewer":
		return RoleViewer, true
	}
	return "", false
}

// Can is the single capability check used by every service.
func (r Role) Can(a Action) bool {
	return capabilities[r][a]
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }
