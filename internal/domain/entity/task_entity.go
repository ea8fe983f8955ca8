package entity

import "time"

// Category is the fixed set of subjects a task can be filed under.
type Category string

const (
	CategoryMathematics     Category = "Mathematics"
	CategoryProgramming     Category = "Programming"
	CategoryCzechLanguage   Category = "Czech Language"
	CategoryEnglishLanguage Category = "English Language"
	CategoryPhysics         Category = "Physics"
	CategoryChemistry       Category = "Chemistry"
	CategoryOther           Category = "Other"
)

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{
		CategoryMathematics,
		CategoryProgramming,
		CategoryCzechLanguage,
		CategoryEnglishLanguage,
		CategoryPhysics,
		CategoryChemistry,
		CategoryOther,
	}
}

// Valid reports whether c is one of Categories. Matching is exact.
func (c Category) Valid() bool {
	for _, v := range Categories() {
		if c == v {
			return true
		}
	}
	return false
}

// Task is a to-do item owned by a single user.
type Task struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title" binding:"required,max=255"`
	Description string    `json:"description" binding:"required"`
	Category    Category  `json:"category" binding:"required,category"`
	DueDate     *string   `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Task) Kind() Kind             { return KindTask }
func (t *Task) EntityID() int64        { return t.ID }
func (t *Task) CreatedTime() time.Time { return t.CreatedAt }
func (t *Task) OwnerID() int64         { return t.UserID }
func (t *Task) SetOwner(uid int64)     { t.UserID = uid }

func (t *Task) Assign(id int64, now time.Time) {
	t.ID = id
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now.UTC()
	}
}

func (t *Task) IsCompleted() bool { return t.Completed }
