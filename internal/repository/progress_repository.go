package repository

import (
	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/model"
	"gorm.io/gorm"
)

// ProgressRepository manages the per-trainee progress tree. Flag updates go
// through version-checked writes so a lost race surfaces as
// apperr.ErrConcurrentModification instead of silently overwriting.
type ProgressRepository interface {
	CreateTree(tlp *model.TraineeLearningPath) error
	FindActiveByTrainee(companyID, traineeID uint) (*model.TraineeLearningPath, error)
	FindStageProgressByID(id uint) (*model.StageProgress, error)
	FindSessionProgressByID(id uint) (*model.SessionProgress, error)
	UpdateTraineeLearningPath(tlp *model.TraineeLearningPath) error
	UpdateStageProgress(sp *model.StageProgress) error
	UpdateSessionProgress(sp *model.SessionProgress) error
	UpdateStageTree(sp *model.StageProgress) error
	DeleteTree(tlpID uint) error
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) CreateTree(tlp *model.TraineeLearningPath) error {
	// GORM creates the nested stage and session progress rows with the root.
	return r.db.Create(tlp).Error
}

func (r *progressRepository) FindActiveByTrainee(companyID, traineeID uint) (*model.TraineeLearningPath, error) {
	var tlp model.TraineeLearningPath
	err := r.db.
		Preload("StageProgresses").
		Preload("StageProgresses.SessionProgresses").
		Where("company_id = ? AND trainee_id = ? AND is_active = ?", companyID, traineeID, true).
		First(&tlp).Error
	if err != nil {
		return nil, err
	}
	return &tlp, nil
}

func (r *progressRepository) FindStageProgressByID(id uint) (*model.StageProgress, error) {
	var sp model.StageProgress
	if err := r.db.First(&sp, id).Error; err != nil {
		return nil, err
	}
	return &sp, nil
}

func (r *progressRepository) FindSessionProgressByID(id uint) (*model.SessionProgress, error) {
	var sp model.SessionProgress
	if err := r.db.First(&sp, id).Error; err != nil {
		return nil, err
	}
	return &sp, nil
}

func (r *progressRepository) UpdateTraineeLearningPath(tlp *model.TraineeLearningPath) error {
	return r.db.Model(&model.TraineeLearningPath{}).
		Where("id = ?", tlp.ID).
		Updates(map[string]interface{}{
			"attestation_completed": tlp.AttestationCompleted,
			"is_active":             tlp.IsActive,
		}).Error
}

func (r *progressRepository) UpdateStageProgress(sp *model.StageProgress) error {
	if err := writeStageRow(r.db, sp); err != nil {
		return err
	}
	sp.Version++
	return nil
}

func (r *progressRepository) UpdateSessionProgress(sp *model.SessionProgress) error {
	if err := writeSessionRow(r.db, sp); err != nil {
		return err
	}
	sp.Version++
	return nil
}

// UpdateStageTree writes a stage progress row together with all of its session
// rows in one transaction. Every row keeps its version check and a single lost
// check rolls the whole write back, so a stage is never left opened over
// closed sessions.
func (r *progressRepository) UpdateStageTree(sp *model.StageProgress) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := writeStageRow(tx, sp); err != nil {
			return err
		}
		for i := range sp.SessionProgresses {
			if err := writeSessionRow(tx, &sp.SessionProgresses[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	sp.Version++
	for i := range sp.SessionProgresses {
		sp.SessionProgresses[i].Version++
	}
	return nil
}

func writeStageRow(db *gorm.DB, sp *model.StageProgress) error {
	res := db.Model(&model.StageProgress{}).
		Where("id = ? AND version = ?", sp.ID, sp.Version).
		Updates(map[string]interface{}{
			"is_opened":    sp.IsOpened,
			"is_completed": sp.IsCompleted,
			"opened_at":    sp.OpenedAt,
			"completed_at": sp.CompletedAt,
			"version":      sp.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrConcurrentModification
	}
	return nil
}

func writeSessionRow(db *gorm.DB, sp *model.SessionProgress) error {
	res := db.Model(&model.SessionProgress{}).
		Where("id = ? AND version = ?", sp.ID, sp.Version).
		Updates(map[string]interface{}{
			"is_opened":    sp.IsOpened,
			"is_completed": sp.IsCompleted,
			"opened_at":    sp.OpenedAt,
			"completed_at": sp.CompletedAt,
			"version":      sp.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrConcurrentModification
	}
	return nil
}

// DeleteTree removes a trainee's path assignment and every dependent progress
// row. Hard delete: path reassignment is an explicit destructive operation.
func (r *progressRepository) DeleteTree(tlpID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var stageIDs []uint
		if err := tx.Model(&model.StageProgress{}).
			Where("trainee_learning_path_id = ?", tlpID).
			Pluck("id", &stageIDs).Error; err != nil {
			return err
		}
		if len(stageIDs) > 0 {
			if err := tx.Unscoped().
				Where("stage_progress_id IN ?", stageIDs).
				Delete(&model.SessionProgress{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().
			Where("trainee_learning_path_id = ?", tlpID).
			Delete(&model.StageProgress{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.TraineeLearningPath{}, tlpID).Error
	})
}
