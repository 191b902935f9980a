package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subgoal is one checkable sub-unit of a personal goal.
type Subgoal struct {
	Title string `bson:"title" json:"title"`
	Done  bool   `bson:"done" json:"done"`
}

// Goal is a personal goal record. It is exclusively owned by its user; a
// community item only points at it through its source_id and reads progress
// through the source record adapter.
type Goal struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID   `bson:"user_id" json:"user_id"`
	Title          string               `bson:"title" json:"title"`
	Description    string               `bson:"description,omitempty" json:"description,omitempty"`
	Category       string               `bson:"category,omitempty" json:"category,omitempty"`
	Subgoals       []Subgoal            `bson:"subgoals,omitempty" json:"subgoals,omitempty"`
	LinkedHabitIDs []primitive.ObjectID `bson:"linked_habit_ids,omitempty" json:"linked_habit_ids,omitempty"`
	Completed      bool                 `bson:"completed" json:"completed"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}

// SubgoalCount returns the number of sub-units on the goal.
func (g *Goal) SubgoalCount() int {
	return len(g.Subgoals)
}

// CompletedSubgoalCount returns the number of sub-units marked done.
func (g *Goal) CompletedSubgoalCount() int {
	done := 0
	for _, sub := range g.Subgoals {
		if sub.Done {
			done++
		}
	}
	return done
}
