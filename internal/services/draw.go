package services

import (
	"fmt"

	"campaignlottery/internal/models"
)

// Draw partitions eligible into winnerCount winners and the remaining losers.
//
// The input is shuffled with a swap-based Fisher–Yates pass (for i from the
// last index down to 1, swap i with a uniform j in [0, i]), so every
// permutation is equally likely given a uniform rng. The first winnerCount
// applicants of the permutation win. eligible is not modified.
func Draw(eligible []models.Applicant, winnerCount int, rng RandomSource) (winners, losers []models.Applicant, err error) {
	if winnerCount < 1 {
		return nil, nil, fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidWinnerCount, winnerCount)
	}
	if winnerCount > len(eligible) {
		return nil, nil, fmt.Errorf("%w: must not exceed the %d eligible applicants, got %d",
			ErrInvalidWinnerCount, len(eligible), winnerCount)
	}

	shuffled := make([]models.Applicant, len(eligible))
	copy(shuffled, eligible)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	winners = make([]models.Applicant, 0, winnerCount)
	for _, a := range shuffled[:winnerCount] {
		winners = append(winners, a.WithStatus(models.StatusWinner))
	}
	losers = make([]models.Applicant, 0, len(shuffled)-winnerCount)
	for _, a := range shuffled[winnerCount:] {
		losers = append(losers, a.WithStatus(models.StatusLoser))
	}
	return winners, losers, nil
}
