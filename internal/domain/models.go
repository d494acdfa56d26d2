package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotFoundError names the missing entity. It matches ErrNotFound.
type NotFoundError struct {
	Kind string
	Name string
}

func NotFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Role mirrors the CTFd users.type column.
type Role string

const (
	RolePlayer Role = "user"
	RoleAdmin  Role = "admin"
)

// RoleFilter narrows which users a query considers.
type RoleFilter string

const (
	FilterPlayers  RoleFilter = "players"
	FilterAdmins   RoleFilter = "admins"
	FilterEveryone RoleFilter = "everyone"
)

func ParseRoleFilter(s string) (RoleFilter, error) {
	switch f := RoleFilter(s); f {
	case FilterPlayers, FilterAdmins, FilterEveryone:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown role filter %q", ErrInvalidArgument, s)
}

// Roles returns the users.type values matched by the filter, nil meaning no restriction.
func (f RoleFilter) Roles() []Role {
	switch f {
	case FilterPlayers:
		return []Role{RolePlayer}
	case FilterAdmins:
		return []Role{RoleAdmin}
	}
	return nil
}

type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

type ChallengeState string

const (
	ChallengeVisible ChallengeState = "visible"
	ChallengeHidden  ChallengeState = "hidden"
)

type User struct {
	ID   int
	Name string
	Role Role
}

type Challenge struct {
	ID          int
	Name        string
	Category    string
	Value       int
	State       ChallengeState
	Description string
}

type Submission struct {
	ID          int
	UserID      int
	ChallengeID int
	Verdict     Verdict
	SubmittedAt time.Time
	Provided    string
}

// Solve is a correct submission joined with its user and challenge.
type Solve struct {
	SubmissionID   int
	UserID         int
	UserName       string
	ChallengeID    int
	ChallengeName  string
	ChallengeValue int
	SubmittedAt    time.Time
}

type SolveEvent struct {
	UserName       string    `json:"user_name"`
	ChallengeName  string    `json:"challenge_name"`
	ChallengeValue int       `json:"challenge_value"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type ChallengeInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Value    int    `json:"value"`
	Category string `json:"category"`
}

type ScoreEntry struct {
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
	Score    int    `json:"score"`
}

type SolvedChallenge struct {
	Name     string    `json:"name"`
	Value    int       `json:"value"`
	SolvedAt time.Time `json:"solved_at,omitzero"`
}

// UserSolves groups the challenges one user solved in a window.
type UserSolves struct {
	UserName   string            `json:"user_name"`
	Challenges []SolvedChallenge `json:"challenges"`
}

// Author is a Discord handle referenced in a challenge description.
type Author struct {
	Name          string `json:"name"`
	Discriminator string `json:"discriminator"`
}

func (a Author) String() string {
	return a.Name + "#" + a.Discriminator
}

// SolveDiff holds, for two users, the challenges each solved and the other did not.
type SolveDiff struct {
	First  UserSolves `json:"first"`
	Second UserSolves `json:"second"`
}

// Empty reports whether both users solved exactly the same challenges.
func (d SolveDiff) Empty() bool {
	return len(d.First.Challenges) == 0 && len(d.Second.Challenges) == 0
}
