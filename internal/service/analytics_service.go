package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/model"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/repository"
	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/util"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AnalyticsService struct {
	AttemptRepo *repository.AttemptRepository
	TestRepo    *repository.TestRepository
	Redis       *redis.Client
	CacheTTL    time.Duration
}

func NewAnalyticsService(
	attemptRepo *repository.AttemptRepository,
	testRepo *repository.TestRepository,
	rdb *redis.Client,
	cacheTTL time.Duration,
) *AnalyticsService {
	return &AnalyticsService{
		AttemptRepo: attemptRepo,
		TestRepo:    testRepo,
		Redis:       rdb,
		CacheTTL:    cacheTTL,
	}
}

func testStatsKey(testID uint) string {
	return fmt.Sprintf("test:%d", testID)
}

func percentileKey(userID, testID uint) string {
	return fmt.Sprintf("percentile:%d:%d", userID, testID)
}

// RecomputeForSubmission 评分完成后的统计刷新：算新百分位落到 attempt 上，
// 并用最新数据覆盖两类缓存。由统计 worker 调用。
func (s *AnalyticsService) RecomputeForSubmission(userID, testID uint) error {
	scores, err := s.AttemptRepo.ListFinishedScores(testID)
	if err != nil {
		return err
	}

	attempt, err := s.AttemptRepo.FindLatestFinishedByUserAndTest(userID, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 评分还没落库就不该有这个任务，重试一轮等它出现
			return util.ErrAttemptNotFound
		}
		return err
	}

	var own float64
	if attempt.Score != nil {
		own = *attempt.Score
	}
	percentile := percentileOf(scores, own)

	if err := s.AttemptRepo.UpdateFields(attempt.ID, map[string]interface{}{
		"percentile": percentile,
	}); err != nil {
		return err
	}

	test, err := s.TestRepo.FindByID(testID)
	if err != nil {
		return err
	}

	stats := aggregateScores(testID, test.TotalMarks, scores)
	s.cacheSet(testStatsKey(testID), stats)
	s.cacheSet(percentileKey(userID, testID), &model.UserPercentile{
		UserID:     userID,
		TestID:     testID,
		Score:      own,
		Percentile: percentile,
	})

	logger.Log.Info("Analytics recomputed",
		zap.Uint("userId", userID),
		zap.Uint("testId", testID),
		zap.Float64("percentile", percentile),
		zap.Int("population", len(scores)))

	return nil
}

// GetTestStats 试卷聚合统计，读穿缓存：命中标 cache，未命中现算标 calculated 并回填
func (s *AnalyticsService) GetTestStats(testID uint) (*model.TestAggregateStats, error) {
	var cached model.TestAggregateStats
	if s.cacheGet(testStatsKey(testID), &cached) {
		cached.Source = model.StatSourceCache
		return &cached, nil
	}

	test, err := s.TestRepo.FindByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	scores, err := s.AttemptRepo.ListFinishedScores(testID)
	if err != nil {
		return nil, err
	}

	stats := aggregateScores(testID, test.TotalMarks, scores)
	s.cacheSet(testStatsKey(testID), stats)

	stats.Source = model.StatSourceCalculated
	return stats, nil
}

// GetUserPercentile 用户在试卷上的百分位，读穿缓存。没有已评分的考试报 not found。
func (s *AnalyticsService) GetUserPercentile(userID, testID uint) (*model.UserPercentile, error) {
	var cached model.UserPercentile
	if s.cacheGet(percentileKey(userID, testID), &cached) {
		cached.Source = model.StatSourceCache
		return &cached, nil
	}

	attempt, err := s.AttemptRepo.FindLatestFinishedByUserAndTest(userID, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	scores, err := s.AttemptRepo.ListFinishedScores(testID)
	if err != nil {
		return nil, err
	}

	var own float64
	if attempt.Score != nil {
		own = *attempt.Score
	}

	result := &model.UserPercentile{
		UserID:     userID,
		TestID:     testID,
		Score:      own,
		Percentile: percentileOf(scores, own),
	}
	s.cacheSet(percentileKey(userID, testID), result)

	result.Source = model.StatSourceCalculated
	return result, nil
}

// percentileOf 百分位 = round(100 · 严格低于自己的人数 / 总人数)。
// 同分不计入，单人场次结果就是 0，保持原样不做美化。
func percentileOf(scores []float64, own float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	below := 0
	for _, s := range scores {
		if s < own {
			below++
		}
	}
	return math.Round(100 * float64(below) / float64(len(scores)))
}

func aggregateScores(testID uint, totalMarks float64, scores []float64) *model.TestAggregateStats {
	stats := &model.TestAggregateStats{TestID: testID, TotalAttempts: len(scores)}
	if len(scores) == 0 {
		return stats
	}

	sum := 0.0
	stats.HighestScore = scores[0]
	stats.LowestScore = scores[0]
	for _, s := range scores {
		sum += s
		if s > stats.HighestScore {
			stats.HighestScore = s
		}
		if s < stats.LowestScore {
			stats.LowestScore = s
		}
	}
	stats.AverageScore = sum / float64(len(scores))
	stats.Distribution = scoreDistribution(totalMarks, scores)
	return stats
}

// scoreDistribution 把得分切成 10 段（倒扣出负分的归入第一段）
func scoreDistribution(totalMarks float64, scores []float64) []model.ScoreDistributionBucket {
	if totalMarks <= 0 {
		return nil
	}

	const bucketCount = 10
	step := totalMarks / bucketCount
	buckets := make([]model.ScoreDistributionBucket, bucketCount)
	for i := range buckets {
		lo := step * float64(i)
		hi := step * float64(i+1)
		buckets[i].Label = fmt.Sprintf("%.0f-%.0f", lo, hi)
	}

	for _, s := range scores {
		idx := int(s / step)
		if idx < 0 {
			idx = 0
		}
		if idx >= bucketCount {
			idx = bucketCount - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

func (s *AnalyticsService) cacheGet(key string, out interface{}) bool {
	if s.Redis == nil {
		return false
	}
	raw, err := s.Redis.Get(context.Background(), key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger.Log.Warn("Corrupt cache entry, dropping", zap.String("key", key), zap.Error(err))
		s.Redis.Del(context.Background(), key)
		return false
	}
	return true
}

func (s *AnalyticsService) cacheSet(key string, v interface{}) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Redis.Set(context.Background(), key, raw, s.CacheTTL).Err(); err != nil {
		// 缓存挂了统计照常直算，只降低命中率
		logger.Log.Warn("Failed to write stats cache", zap.String("key", key), zap.Error(err))
	}
}
