package services

import (
	"fmt"
	"time"

	"drips/internal/models"
)

// DeriveStatus computes the lifecycle flags of a raffle at nowMillis.
// A winner or a passed deadline ends the raffle regardless of the pause flag.
func DeriveStatus(r models.RaffleRecord, nowMillis int64) models.RaffleStatus {
	hasWinner := r.WinnerAddress != ""
	isPastDeadline := nowMillis >= r.DeadlineMillis
	isActive := !r.IsPaused && !hasWinner && nowMillis < r.DeadlineMillis

	return models.RaffleStatus{
		IsActive:       isActive,
		IsEnded:        hasWinner || isPastDeadline,
		HasWinner:      hasWinner,
		IsPastDeadline: isPastDeadline,
		IsPaused:       r.IsPaused,
		// Redundant with IsActive; kept as its own field for API stability.
		IsJoinable: isActive && !r.IsPaused,
	}
}

// StatusDescription is a one-word summary of a status.
func StatusDescription(s models.RaffleStatus) string {
	switch {
	case s.HasWinner:
		return "Winner Selected"
	case s.IsPastDeadline:
		return "Expired"
	case s.IsPaused:
		return "Paused"
	case s.IsActive:
		return "Active"
	default:
		return "Unknown"
	}
}

// NeedsWinnerSelection reports whether an operator should draw a winner now.
func NeedsWinnerSelection(d models.RaffleDetails) bool {
	return d.Status.IsPastDeadline && !d.Status.HasWinner && d.ParticipantsCount > 0
}

// TimeRemaining formats the time left until deadline as "2d 3h 4m",
// "3h 4m" or "4m", or "Expired" once it has passed.
func TimeRemaining(deadline, now time.Time) string {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return "Expired"
	}
	days := int(diff / (24 * time.Hour))
	hours := int(diff % (24 * time.Hour) / time.Hour)
	minutes := int(diff % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
