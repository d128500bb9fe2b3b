package service

import (
	"context"
	"fmt"

	"github.com/yuqie6/LifeMirror/internal/period"
	"github.com/yuqie6/LifeMirror/internal/schema"
)

// ReminderPrompt 一条待呈现的提醒。payload 按类别取用：
// diary_missing 用 MissedDate，weekly/monthly 用 Window，daily_question 用 Question。
type ReminderPrompt struct {
	Kind       schema.ReminderKind        `json:"kind"`
	Date       string                     `json:"date"` // 提醒所属日期（today）
	MissedDate string                     `json:"missed_date,omitempty"`
	Window     *period.Window             `json:"window,omitempty"`
	Question   *schema.ReflectionQuestion `json:"question,omitempty"`
}

// ReminderService 提醒门控：每个类别一个无副作用的检查。
// 检查本身从不写已展示标记——渲染失败的提醒不能在当天被静默丢掉；
// 标记只在用户处理/关闭提醒时通过 Resolve 写入。
type ReminderService struct {
	diaryRepo    DiaryRepository
	questionRepo QuestionRepository
	shownRepo    ReminderShownRepository
	clock        period.Clock
}

// NewReminderService 创建服务
func NewReminderService(
	diaryRepo DiaryRepository,
	questionRepo QuestionRepository,
	shownRepo ReminderShownRepository,
	clock period.Clock,
) *ReminderService {
	if clock == nil {
		clock = period.SystemClock{}
	}
	return &ReminderService{
		diaryRepo:    diaryRepo,
		questionRepo: questionRepo,
		shownRepo:    shownRepo,
		clock:        clock,
	}
}

// Check 按类别执行检查，无提醒时返回 nil
func (s *ReminderService) Check(ctx context.Context, userID int64, kind schema.ReminderKind) (*ReminderPrompt, error) {
	switch kind {
	case schema.ReminderDiaryMissing:
		return s.checkDiaryMissing(ctx, userID)
	case schema.ReminderWeeklySummary:
		return s.checkWeeklySummary(ctx, userID)
	case schema.ReminderMonthlySummary:
		return s.checkMonthlySummary(ctx, userID)
	case schema.ReminderDailyQuestion:
		return s.checkDailyQuestion(ctx, userID)
	default:
		return nil, fmt.Errorf("未知提醒类别: %s", kind)
	}
}

// Resolve 写入今天的已展示标记，用户关闭或处理提醒时调用
func (s *ReminderService) Resolve(ctx context.Context, userID int64, kind schema.ReminderKind) error {
	today := s.today()
	return s.shownRepo.MarkShown(ctx, userID, kind, today)
}

func (s *ReminderService) today() string {
	return period.Normalize(s.clock.Now()).Format(period.DateLayout)
}

func (s *ReminderService) checkDiaryMissing(ctx context.Context, userID int64) (*ReminderPrompt, error) {
	today := s.today()
	shown, err := s.shownRepo.WasShown(ctx, userID, schema.ReminderDiaryMissing, today)
	if err != nil {
		return nil, err
	}
	if shown {
		return nil, nil
	}

	yesterday := period.Normalize(s.clock.Now()).AddDate(0, 0, -1).Format(period.DateLayout)
	diary, err := s.diaryRepo.GetByDate(ctx, userID, yesterday)
	if err != nil {
		return nil, err
	}
	if diary != nil {
		// 昨天写过日记，不提醒（与已展示标记无关）
		return nil, nil
	}

	return &ReminderPrompt{
		Kind:       schema.ReminderDiaryMissing,
		Date:       today,
		MissedDate: yesterday,
	}, nil
}

func (s *ReminderService) checkWeeklySummary(ctx context.Context, userID int64) (*ReminderPrompt, error) {
	now := s.clock.Now()
	if !period.IsWeeklyTriggerDay(now) {
		return nil, nil
	}

	today := s.today()
	shown, err := s.shownRepo.WasShown(ctx, userID, schema.ReminderWeeklySummary, today)
	if err != nil {
		return nil, err
	}
	if shown {
		return nil, nil
	}

	w := period.LastElapsedWeek(now)
	return &ReminderPrompt{
		Kind:   schema.ReminderWeeklySummary,
		Date:   today,
		Window: &w,
	}, nil
}

func (s *ReminderService) checkMonthlySummary(ctx context.Context, userID int64) (*ReminderPrompt, error) {
	now := s.clock.Now()
	if !period.IsMonthlyTriggerDay(now) {
		return nil, nil
	}

	today := s.today()
	shown, err := s.shownRepo.WasShown(ctx, userID, schema.ReminderMonthlySummary, today)
	if err != nil {
		return nil, err
	}
	if shown {
		return nil, nil
	}

	w := period.LastElapsedMonth(now)
	return &ReminderPrompt{
		Kind:   schema.ReminderMonthlySummary,
		Date:   today,
		Window: &w,
	}, nil
}

func (s *ReminderService) checkDailyQuestion(ctx context.Context, userID int64) (*ReminderPrompt, error) {
	today := s.today()
	shown, err := s.shownRepo.WasShown(ctx, userID, schema.ReminderDailyQuestion, today)
	if err != nil {
		return nil, err
	}
	if shown {
		return nil, nil
	}

	now := s.clock.Now()
	monthDay := now.Format("01-02")
	question, err := s.questionRepo.GetByMonthDay(ctx, monthDay)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, nil
	}

	answered, err := s.questionRepo.HasAnswer(ctx, userID, question.ID, now.Year())
	if err != nil {
		return nil, err
	}
	if answered {
		return nil, nil
	}

	return &ReminderPrompt{
		Kind:     schema.ReminderDailyQuestion,
		Date:     today,
		Question: question,
	}, nil
}
