// Package shell builds the navigation frame around every page: the menu,
// the collapse state and the signed-in user's badge.
package shell

import (
	"strings"
	"sync"

	"dashboard/internal/models"
)

type MenuItem struct {
	Path    string
	Label   string
	Icon    string
	visible func(models.Role) bool
}

func everyone(models.Role) bool { return true }

func adminOnly(role models.Role) bool { return role == models.RoleAdmin }

var menu = []MenuItem{
	{Path: "/dashboard", Label: "Обзор", Icon: "home", visible: everyone},
	{Path: "/events", Label: "Журнал событий", Icon: "list", visible: everyone},
	{Path: "/students", Label: "Ученики", Icon: "users", visible: everyone},
	{Path: "/schools", Label: "Организации", Icon: "building", visible: adminOnly},
	{Path: "/face_encodings", Label: "Идентификация лиц", Icon: "camera", visible: everyone},
}

// MenuFor returns the menu items visible to role, in display order.
func MenuFor(role models.Role) []MenuItem {
	items := make([]MenuItem, 0, len(menu))
	for _, item := range menu {
		if item.visible(role) {
			items = append(items, item)
		}
	}
	return items
}

var roleLabels = map[models.Role]string{
	models.RoleAdmin: "Администратор",
	models.RoleStaff: "Сотрудник",
}

func RoleLabel(role models.Role) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return string(role)
}

// Shell is the data every page template renders its frame from.
type Shell struct {
	Username  string
	Role      models.Role
	RoleLabel string
	Initial   string
	Menu      []MenuItem
	Active    string
	Collapsed bool
}

// IsActive reports whether item is the current page. Nested paths such as
// /students/5 keep their parent active.
func (s Shell) IsActive(item MenuItem) bool {
	return s.Active == item.Path || strings.HasPrefix(s.Active, item.Path+"/")
}

// Build derives the shell from the session at render time.
func Build(session *models.Session, path string, collapsed bool) Shell {
	if path == "/" {
		path = "/dashboard"
	}
	return Shell{
		Username:  session.Username,
		Role:      session.Role,
		RoleLabel: RoleLabel(session.Role),
		Initial:   session.Initial(),
		Menu:      MenuFor(session.Role),
		Active:    path,
		Collapsed: collapsed,
	}
}

// Layout keeps the sidebar collapse preference per session. It has no
// effect on data.
type Layout struct {
	mu        sync.Mutex
	collapsed map[string]bool
}

func NewLayout() *Layout {
	return &Layout{collapsed: make(map[string]bool)}
}

func (l *Layout) Collapsed(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collapsed[sessionID]
}

// Toggle flips the preference and returns the new state.
func (l *Layout) Toggle(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.collapsed[sessionID] = !l.collapsed[sessionID]
	return l.collapsed[sessionID]
}

// Forget drops the preference of a cleared session.
func (l *Layout) Forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.collapsed, sessionID)
}
