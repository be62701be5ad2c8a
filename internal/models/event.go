package models

type EventType string

const (
	EventStudentEntrance EventType = "STUDENT_ENTRANCE"
	EventStudentExit     EventType = "STUDENT_EXIT"
	EventFighting        EventType = "FIGHTING"
	EventSmoking         EventType = "SMOKING"
	EventWeapon          EventType = "WEAPON"
	EventLyingMan        EventType = "LYING_MAN"
)

var eventTypeLabels = map[EventType]string{
	EventStudentEntrance: "Вход студента",
	EventStudentExit:     "Выход студента",
	EventFighting:        "Драка",
	EventSmoking:         "Курение",
	EventWeapon:          "Оружие",
	EventLyingMan:        "Лежащий человек",
}

// Label returns the display name of the event type, or the raw value for
// types the dashboard does not know.
func (t EventType) Label() string {
	if label, ok := eventTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// IsDanger reports the types parents can subscribe to.
func (t EventType) IsDanger() bool {
	return t == EventWeapon || t == EventFighting || t == EventSmoking
}

// DangerEventTypes are the types a notification subscription covers.
var DangerEventTypes = []EventType{EventWeapon, EventFighting, EventSmoking}

// Event is a detection record as returned by GET /events/{category}.
type Event struct {
	ID          int64      `json:"event_id"`
	Timestamp   Timestamp  `json:"timestamp"`
	Type        EventType  `json:"event_type"`
	StudentName string     `json:"student_name"`
	CameraID    FlexString `json:"camera_id"`
}

// Camera returns the camera id or "N/A" when the event has none.
func (e Event) Camera() string {
	if e.CameraID == "" {
		return "N/A"
	}
	return string(e.CameraID)
}

type EventCount struct {
	EventCount int `json:"event_count"`
}

// EventCategory selects one of the /events/{category} endpoints.
type EventCategory string

const (
	CategoryAll        EventCategory = "all"
	CategoryDanger     EventCategory = "danger"
	CategoryLying      EventCategory = "lying"
	CategoryEntrance   EventCategory = "entrance"
	CategoryExit       EventCategory = "exit"
	CategoryIrrelevant EventCategory = "irrelevant"
)

type EventCategoryOption struct {
	Category EventCategory
	Label    string
}

// EventCategories in filter button order.
var EventCategories = []EventCategoryOption{
	{CategoryAll, "Все события"},
	{CategoryDanger, "Инциденты"},
	{CategoryLying, "Лежащий человек"},
	{CategoryEntrance, "Входы"},
	{CategoryExit, "Выходы"},
	{CategoryIrrelevant, "Опоздания"},
}

// ParseEventCategory maps unknown or empty input to CategoryAll.
func ParseEventCategory(s string) EventCategory {
	for _, c := range EventCategories {
		if string(c.Category) == s {
			return c.Category
		}
	}
	return CategoryAll
}
