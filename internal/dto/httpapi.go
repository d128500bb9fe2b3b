package dto

// ========== DTOs（与前端契约保持稳定） ==========

type ReminderPromptDTO struct {
	Kind       string       `json:"kind"`
	Date       string       `json:"date"`
	MissedDate string       `json:"missed_date,omitempty"`
	Window     *WindowDTO   `json:"window,omitempty"`
	Question   *QuestionDTO `json:"question,omitempty"`
}

type WindowDTO struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type QuestionDTO struct {
	ID       int64  `json:"id"`
	MonthDay string `json:"month_day"`
	Text     string `json:"text"`
}

type ResolveReminderRequest struct {
	Kind string `json:"kind"`
}

type PeriodAggregateDTO struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	SourceCount int    `json:"source_count"`
	HasSummary  bool   `json:"has_summary"`
	Overview    string `json:"overview,omitempty"`
	Generating  bool   `json:"generating"`
}

type GenerateReportRequest struct {
	Type      string `json:"type"`       // week | month
	StartDate string `json:"start_date"` // 窗口起始日
	Force     bool   `json:"force"`      // 已有汇总时是否重新生成
}

type PeriodSummaryDTO struct {
	Type         string   `json:"type"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Overview     string   `json:"overview"`
	Achievements []string `json:"achievements"`
	Patterns     string   `json:"patterns"`
	Suggestions  string   `json:"suggestions"`
	SourceCount  int      `json:"source_count"`
}

type DiaryDTO struct {
	ID      int64  `json:"id"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Mood    string `json:"mood,omitempty"`
}

type UpsertDiaryRequest struct {
	Date    string `json:"date"`
	Content string `json:"content"`
	Mood    string `json:"mood"`
}

type TaskDTO struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Done     bool   `json:"done"`
	DoneDate string `json:"done_date,omitempty"`
}

type CreateTaskRequest struct {
	Title string `json:"title"`
}

type UpsertQuestionRequest struct {
	MonthDay string `json:"month_day"`
	Text     string `json:"text"`
}

type AnswerQuestionRequest struct {
	QuestionID int64  `json:"question_id"`
	Content    string `json:"content"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
