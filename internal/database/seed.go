package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"coursesite/internal/models"
)

// DevCourseID is the course the development seed enrols users into.
const DevCourseID = 1

// devParticipants is the development roster: one manager, one teacher and
// three students, two of whom share a group. User 6 mentors user 3.
var devParticipants = []struct {
	userID int64
	role   string
}{
	{1, "manager"},
	{2, "teacher"},
	{3, "student"},
	{4, "student"},
	{5, "student"},
}

// Seed populates the enrolment mirror tables with a development course.
// It does nothing when any participant already exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM course_participants").Scan(&count); err != nil {
		return fmt.Errorf("seed check participants: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range devParticipants {
		if _, err := tx.Exec(
			`INSERT INTO course_participants (course_id, user_id, role) VALUES ($1, $2, $3)`,
			DevCourseID, p.userID, p.role,
		); err != nil {
			return fmt.Errorf("seed participant %d: %w", p.userID, err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO group_members (group_id, user_id) VALUES (1, 3), (1, 4)`); err != nil {
		return fmt.Errorf("seed groups: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO mentors (mentor_id, user_id) VALUES (6, 3)`); err != nil {
		return fmt.Errorf("seed mentors: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with development course", "course_id", DevCourseID, "participants", len(devParticipants))
	return nil
}

// RosterWriter receives the development roster. The in-memory store
// implements it.
type RosterWriter interface {
	Enrol(courseID, userID int64, role models.Role)
	AddGroupMember(groupID, userID int64)
	AddMentor(mentorID, userID int64)
}

// SeedRoster writes the development roster into w.
func SeedRoster(w RosterWriter) {
	for _, p := range devParticipants {
		w.Enrol(DevCourseID, p.userID, models.Role(p.role))
	}
	w.AddGroupMember(1, 3)
	w.AddGroupMember(1, 4)
	w.AddMentor(6, 3)
	slog.Info("memory store seeded with development course", "course_id", DevCourseID, "participants", len(devParticipants))
}
