package progress

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
	"github.com/yungbote/learndb-studio/internal/platform/logger"
)

type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB, baseLog *logger.Logger) *GormStore {
	return &GormStore{db: db, log: baseLog.With("repo", "ProgressStore")}
}

func (s *GormStore) Load(ctx context.Context, profileID string) (learndb.Progression, error) {
	var rec learndb.ProgressRecord
	err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return learndb.NewProgression(), nil
	}
	if err != nil {
		return learndb.Progression{}, err
	}

	var ids []string
	if len(rec.Completed) > 0 {
		if err := json.Unmarshal(rec.Completed, &ids); err != nil {
			return learndb.Progression{}, err
		}
	}
	return learndb.Progression{
		Completed:   learndb.NewCompletedSet(ids...),
		TotalPoints: rec.TotalPoints,
	}, nil
}

// Save upserts the profile's row.
func (s *GormStore) Save(ctx context.Context, profileID string, p learndb.Progression) error {
	raw, err := json.Marshal(p.Completed.IDs())
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rec := learndb.ProgressRecord{
		ProfileID:   profileID,
		Completed:   datatypes.JSON(raw),
		TotalPoints: p.TotalPoints,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "total_points", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		s.log.Warn("save progression failed", "profile_id", profileID, "error", err)
	}
	return err
}
