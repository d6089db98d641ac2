package models

import "time"

// Guardian represents a parent or caretaker linked to one or more students.
type Guardian struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GuardianStudent links a guardian to a student.
type GuardianStudent struct {
	GuardianID string    `db:"guardian_id" json:"guardian_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Relation   string    `db:"relation" json:"relation"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
