package moderation

import (
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrPermissionDenied matches every refusal from CanModerate.
var ErrPermissionDenied = errors.New("permission denied")

// RefusalError explains why a moderation action was refused. Reason is safe
// to show to the invoking user.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string { return e.Reason }

func (e *RefusalError) Is(target error) bool { return target == ErrPermissionDenied }

func refuse(reason string) error {
	return &RefusalError{Reason: reason}
}

type Guild struct {
	ID            string
	Name          string
	OwnerID       string
	RolePositions map[string]int
}

// HighestPosition returns the position of m's highest role, 0 for none.
func (g Guild) HighestPosition(m Member) int {
	highest := 0
	for _, role := range m.Roles {
		if pos, ok := g.RolePositions[role]; ok && pos > highest {
			highest = pos
		}
	}
	return highest
}

type Member struct {
	UserID        string
	Tag           string
	Bot           bool
	Roles         []string
	Permissions   int64
	Present       bool
	TimedOutUntil *time.Time
}

func (m Member) IsAdmin() bool {
	return m.Permissions&discordgo.PermissionAdministrator != 0
}

// CanModerate checks, in order: self, owner, bots without Administrator and
// role hierarchy. Bot and hierarchy checks only apply to present members, and
// the owner is never held back by hierarchy.
func CanModerate(executor, target Member, guild Guild) error {
	if executor.UserID == target.UserID {
		return refuse("You cannot moderate yourself!")
	}
	if target.UserID == guild.OwnerID {
		return refuse("You cannot moderate the server owner!")
	}
	if !target.Present {
		return nil
	}
	if target.Bot && !executor.IsAdmin() {
		return refuse("You cannot moderate bots!")
	}
	if executor.UserID != guild.OwnerID && guild.HighestPosition(executor) <= guild.HighestPosition(target) {
		return refuse("You cannot moderate someone with an equal or higher role!")
	}
	return nil
}
