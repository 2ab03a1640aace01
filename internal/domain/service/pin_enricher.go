package service

import (
	"context"

	"go.uber.org/zap"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
)

// PinEnricher はピンに最新の投稿とユーザー情報を付与する
// 付与に失敗してもピン自体は返す
type PinEnricher struct {
	activity repository.ActivityRepository
	profiles repository.MapDataRepository
	logger   *zap.Logger
}

func NewPinEnricher(activity repository.ActivityRepository, profiles repository.MapDataRepository, logger *zap.Logger) *PinEnricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PinEnricher{
		activity: activity,
		profiles: profiles,
		logger:   logger,
	}
}

// latestPost ロケーションごとの最新投稿と投稿者
type latestPost struct {
	activity *model.LatestActivity
	authorID string
}

// Enrich はピンに最新アクティビティを付与し、following/sharedモードではユーザー情報も付与する
func (e *PinEnricher) Enrich(ctx context.Context, mode model.FilterMode, pins []model.MapPin) []model.MapPin {
	if len(pins) == 0 {
		return pins
	}

	latest := e.fetchLatestPosts(ctx, pins)
	for i := range pins {
		if post, ok := latest[pins[i].ID]; ok {
			activity := *post.activity
			pins[i].LatestActivity = &activity
		}
	}

	if mode == model.FilterFollowing || mode == model.FilterShared {
		e.attachAttribution(ctx, mode, pins, latest)
	}
	return pins
}

// fetchLatestPosts 内部ロケーションIDについて最新の投稿を1件ずつ取得する
func (e *PinEnricher) fetchLatestPosts(ctx context.Context, pins []model.MapPin) map[string]latestPost {
	latest := make(map[string]latestPost)
	if e.activity == nil {
		return latest
	}

	ids := make([]string, 0, len(pins))
	for i := range pins {
		if helper.IsInternalLocationID(pins[i].ID) {
			ids = append(ids, pins[i].ID)
		}
	}
	ids = helper.UniqueStrings(ids)

	for start := 0; start < len(ids); start += model.EnrichmentBatchSize {
		end := start + model.EnrichmentBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		posts, err := e.activity.GetRecentPostsByLocationIDs(ctx, ids[start:end], 1)
		if err != nil {
			e.logger.Warn("⚠️  最新投稿の取得に失敗しました", zap.Int("batch_size", end-start), zap.Error(err))
			continue
		}
		// 新しい順に並んでいるので、ロケーションごとに最初の1件を採用する
		for _, post := range posts {
			if _, ok := latest[post.LocationID]; ok {
				continue
			}
			latest[post.LocationID] = latestPost{
				activity: toLatestActivity(&post),
				authorID: post.UserID,
			}
		}
	}
	return latest
}

func toLatestActivity(post *model.PostRecord) *model.LatestActivity {
	activityType := model.ActivityPhoto
	if post.Rating != nil && *post.Rating > 0 {
		activityType = model.ActivityReview
	}
	return &model.LatestActivity{
		Type:      activityType,
		Snippet:   helper.TruncateSnippet(helper.StringValue(post.Caption)),
		CreatedAt: post.CreatedAt,
	}
}

// attachAttribution 所有ユーザーのプロフィールからsharedByUser/savedByUserを付与する
func (e *PinEnricher) attachAttribution(ctx context.Context, mode model.FilterMode, pins []model.MapPin, latest map[string]latestPost) {
	if e.profiles == nil {
		return
	}

	ownerIDs := make([]string, 0, len(pins))
	for i := range pins {
		ownerIDs = append(ownerIDs, pins[i].OwnerUserID)
	}
	ownerIDs = helper.UniqueStrings(ownerIDs)
	if len(ownerIDs) == 0 {
		return
	}

	profiles, err := e.profiles.GetProfilesByIDs(ctx, ownerIDs)
	if err != nil {
		e.logger.Warn("⚠️  プロフィールの取得に失敗しました", zap.Int("owners", len(ownerIDs)), zap.Error(err))
		return
	}
	byID := make(map[string]model.ProfileRecord, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	for i := range pins {
		profile, ok := byID[pins[i].OwnerUserID]
		if !ok {
			continue
		}
		attribution := &model.UserAttribution{
			ID:        profile.ID,
			Username:  profile.Username,
			AvatarURL: helper.StringValue(profile.AvatarURL),
			Action:    deriveAction(profile.ID, latest[pins[i].ID]),
		}
		if mode == model.FilterShared {
			pins[i].SharedByUser = attribution
		} else {
			pins[i].SavedByUser = attribution
		}
	}
}

// deriveAction 所有ユーザー自身の最新投稿ならfaved/posted、それ以外はsaved
func deriveAction(ownerID string, post latestPost) string {
	if post.activity == nil || post.authorID != ownerID {
		return model.ActionSaved
	}
	switch post.activity.Type {
	case model.ActivityReview:
		return model.ActionFaved
	case model.ActivityPhoto:
		return model.ActionPosted
	default:
		return model.ActionSaved
	}
}
