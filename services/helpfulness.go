package services

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rental-platform-server/models"
	"rental-platform-server/types"
)

// HelpfulnessService keeps helpful_votes and total_votes equal to the live vote set.
// Every vote mutation locks the review row, changes the vote and recomputes both
// counters in one transaction.
type HelpfulnessService struct {
	db *gorm.DB
}

func NewHelpfulnessService(db *gorm.DB) *HelpfulnessService {
	return &HelpfulnessService{db: db}
}

// Vote records or overwrites the voter's vote on a review
func (s *HelpfulnessService) Vote(reviewID, voterID uint, isHelpful bool) (*models.Review, error) {
	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockReview(tx, reviewID, &review); err != nil {
			return err
		}
		if review.TenantID == voterID {
			return types.NewPermissionError("you cannot vote on your own review")
		}

		var vote models.ReviewHelpfulness
		err := tx.Where("review_id = ? AND user_id = ?", reviewID, voterID).First(&vote).Error
		switch {
		case err == nil:
			if vote.IsHelpful != isHelpful {
				if err := tx.Model(&vote).Update("is_helpful", isHelpful).Error; err != nil {
					return err
				}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote = models.ReviewHelpfulness{ReviewID: reviewID, UserID: voterID, IsHelpful: isHelpful}
			if err := tx.Create(&vote).Error; err != nil {
				if isUniqueViolation(err) {
					return types.NewConflictError("your vote on this review is already being recorded")
				}
				return err
			}
		default:
			return err
		}

		return recomputeHelpfulness(tx, &review)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// RemoveVote deletes the voter's vote on a review
func (s *HelpfulnessService) RemoveVote(reviewID, voterID uint) (*models.Review, error) {
	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockReview(tx, reviewID, &review); err != nil {
			return err
		}

		result := tx.Where("review_id = ? AND user_id = ?", reviewID, voterID).Delete(&models.ReviewHelpfulness{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.NewNotFoundError("vote")
		}

		return recomputeHelpfulness(tx, &review)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// RecomputeAll rebuilds the counters of every review. Returns the number of reviews checked.
func (s *HelpfulnessService) RecomputeAll() (int, error) {
	var ids []uint
	if err := s.db.Model(&models.Review{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	for _, id := range ids {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var review models.Review
			if err := lockReview(tx, id, &review); err != nil {
				return err
			}
			return recomputeHelpfulness(tx, &review)
		})
		var nf *types.NotFoundError
		if err != nil && !errors.As(err, &nf) {
			return 0, err
		}
	}
	return len(ids), nil
}

// lockReview loads the review with SELECT ... FOR UPDATE
func lockReview(tx *gorm.DB, reviewID uint, review *models.Review) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(review, reviewID).Error
	return notFound(err, "review")
}

// recomputeHelpfulness derives both counters from the vote rows and stores them
func recomputeHelpfulness(tx *gorm.DB, review *models.Review) error {
	var counts struct {
		Total   int
		Helpful int
	}
	err := tx.Model(&models.ReviewHelpfulness{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_helpful = ? THEN 1 ELSE 0 END), 0) AS helpful", true).
		Where("review_id = ?", review.ID).
		Scan(&counts).Error
	if err != nil {
		return err
	}

	err = tx.Model(&models.Review{}).Where("id = ?", review.ID).UpdateColumns(map[string]interface{}{
		"helpful_votes": counts.Helpful,
		"total_votes":   counts.Total,
	}).Error
	if err != nil {
		return err
	}

	review.HelpfulVotes = counts.Helpful
	review.TotalVotes = counts.Total
	review.RefreshDerived()
	return nil
}
