package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuqie6/LifeMirror/internal/bootstrap"
	"github.com/yuqie6/LifeMirror/internal/dto"
	"github.com/yuqie6/LifeMirror/internal/period"
	"github.com/yuqie6/LifeMirror/internal/pkg/buildinfo"
	"github.com/yuqie6/LifeMirror/internal/schema"
	"github.com/yuqie6/LifeMirror/internal/service"
)

type apiHandler struct {
	core *bootstrap.Core
}

func newAPI(core *bootstrap.Core) *apiHandler {
	return &apiHandler{core: core}
}

func (a *apiHandler) registerJSONRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/reminders", a.handleReminders)
	mux.HandleFunc("/api/reminders/resolve", a.handleResolveReminder)
	mux.HandleFunc("/api/reports/windows", a.handleReportWindows)
	mux.HandleFunc("/api/reports/generate", a.handleGenerateReport)
	mux.HandleFunc("/api/reports", a.handleListReports)
	mux.HandleFunc("/api/diaries", a.handleDiaries)
	mux.HandleFunc("/api/tasks", a.handleTasks)
	mux.HandleFunc("/api/tasks/done", a.handleTaskDone)
	mux.HandleFunc("/api/questions", a.handleQuestions)
	mux.HandleFunc("/api/questions/answer", a.handleAnswerQuestion)
}

func (a *apiHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   buildinfo.Version,
		"safe_mode": a.core.DB.SafeMode,
	})
}

// ========== 提醒 ==========

func (a *apiHandler) handleReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 GET")
		return
	}

	prompts := a.core.Services.Notifier.Prompts()
	out := make([]dto.ReminderPromptDTO, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, promptToDTO(&p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiHandler) handleResolveReminder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 POST")
		return
	}

	var req dto.ResolveReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	kind := schema.ReminderKind(strings.TrimSpace(req.Kind))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "未知的提醒类别: "+req.Kind)
		return
	}

	closed := a.core.Services.Notifier.Resolve(kind)
	writeJSON(w, http.StatusOK, map[string]any{"closed": closed})
}

// ========== 阶段汇总 ==========

func (a *apiHandler) handleReportWindows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 GET")
		return
	}

	userID := a.userID(r)
	periodType := r.URL.Query().Get("type")
	if periodType == "" {
		periodType = schema.PeriodWeek
	}
	years, err := parseYears(r.URL.Query().Get("years"), a.core.Clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var aggs []service.PeriodAggregate
	switch periodType {
	case schema.PeriodWeek:
		aggs, err = a.core.Services.Report.AggregateWeeks(r.Context(), userID, years)
	case schema.PeriodMonth:
		aggs, err = a.core.Services.Report.AggregateMonths(r.Context(), userID, years)
	default:
		writeError(w, http.StatusBadRequest, "未知周期类型: "+periodType)
		return
	}
	if err != nil {
		slog.Error("聚合周期窗口失败", "type", periodType, "error", err)
		writeError(w, http.StatusInternalServerError, "聚合失败")
		return
	}

	// 选择器按最近在前展示
	out := make([]dto.PeriodAggregateDTO, 0, len(aggs))
	for i := len(aggs) - 1; i >= 0; i-- {
		agg := aggs[i]
		out = append(out, dto.PeriodAggregateDTO{
			StartDate:   agg.Window.StartDate(),
			EndDate:     agg.Window.EndDate(),
			SourceCount: agg.SourceCount,
			HasSummary:  agg.HasSummary,
			Overview:    agg.Overview,
			Generating:  a.core.Services.Report.IsGenerating(userID, periodType, agg.Window),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiHandler) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 POST")
		return
	}

	var req dto.GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	start, err := period.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "起始日期格式错误: "+req.StartDate)
		return
	}

	var window period.Window
	switch req.Type {
	case schema.PeriodWeek:
		window = period.WeekOf(start)
	case schema.PeriodMonth:
		window = period.MonthOf(start)
	default:
		writeError(w, http.StatusBadRequest, "未知周期类型: "+req.Type)
		return
	}

	userID := a.userID(r)
	row, err := a.core.Services.Report.Generate(r.Context(), userID, req.Type, window, req.Force)
	if err != nil {
		status := generateErrStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("生成阶段汇总失败", "type", req.Type, "window", window.Key(), "error", err)
		}
		writeError(w, status, err.Error())
		return
	}

	if a.core.Services.RAG != nil {
		if err := a.core.Services.RAG.IndexPeriodSummary(r.Context(), row); err != nil {
			slog.Warn("索引阶段汇总到记忆库失败", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, summaryToDTO(row))
}

// generateErrStatus 把生成错误映射到 HTTP 状态码
func generateErrStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrGenerating):
		return http.StatusConflict
	case errors.Is(err, service.ErrWindowNotElapsed):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyWindow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrExternalCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *apiHandler) handleListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 GET")
		return
	}

	userID := a.userID(r)
	periodType := r.URL.Query().Get("type")
	if periodType == "" {
		periodType = schema.PeriodWeek
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit 必须是正整数")
			return
		}
		limit = n
	}

	rows, err := a.core.Repos.PeriodSummary.ListByType(r.Context(), userID, periodType, limit)
	if err != nil {
		slog.Error("查询阶段汇总失败", "type", periodType, "error", err)
		writeError(w, http.StatusInternalServerError, "查询失败")
		return
	}

	out := make([]dto.PeriodSummaryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, summaryToDTO(&rows[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ========== 日记 ==========

func (a *apiHandler) handleDiaries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listDiaries(w, r)
	case http.MethodPost, http.MethodPut:
		a.upsertDiary(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "仅支持 GET/POST/PUT")
	}
}

func (a *apiHandler) listDiaries(w http.ResponseWriter, r *http.Request) {
	userID := a.userID(r)
	q := r.URL.Query()

	if date := q.Get("date"); date != "" {
		diary, err := a.core.Repos.Diary.GetByDate(r.Context(), userID, date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "查询失败")
			return
		}
		if diary == nil {
			writeError(w, http.StatusNotFound, "当天没有日记")
			return
		}
		writeJSON(w, http.StatusOK, diaryToDTO(diary))
		return
	}

	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "需要 date 或 start+end 参数")
		return
	}
	diaries, err := a.core.Repos.Diary.ListByDateRange(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "查询失败")
		return
	}
	out := make([]dto.DiaryDTO, 0, len(diaries))
	for i := range diaries {
		out = append(out, diaryToDTO(&diaries[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiHandler) upsertDiary(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertDiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if _, err := period.ParseDate(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "日期格式错误: "+req.Date)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "内容不能为空")
		return
	}

	userID := a.userID(r)
	diary := &schema.Diary{
		UserID:  userID,
		Date:    req.Date,
		Content: req.Content,
		Mood:    req.Mood,
	}
	if err := a.core.Repos.Diary.Upsert(r.Context(), diary); err != nil {
		slog.Error("保存日记失败", "date", req.Date, "error", err)
		writeError(w, http.StatusInternalServerError, "保存失败")
		return
	}

	if a.core.Services.RAG != nil {
		if err := a.core.Services.RAG.IndexDiary(r.Context(), diary); err != nil {
			slog.Warn("索引日记到记忆库失败", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, diaryToDTO(diary))
}

// ========== 待办 ==========

func (a *apiHandler) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks, err := a.core.Repos.Task.ListPending(r.Context(), a.userID(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "查询失败")
			return
		}
		out := make([]dto.TaskDTO, 0, len(tasks))
		for i := range tasks {
			out = append(out, taskToDTO(&tasks[i]))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req dto.CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "请求体解析失败")
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeError(w, http.StatusBadRequest, "标题不能为空")
			return
		}
		task := &schema.Task{UserID: a.userID(r), Title: req.Title}
		if err := a.core.Repos.Task.Create(r.Context(), task); err != nil {
			writeError(w, http.StatusInternalServerError, "创建失败")
			return
		}
		writeJSON(w, http.StatusOK, taskToDTO(task))
	default:
		writeError(w, http.StatusMethodNotAllowed, "仅支持 GET/POST")
	}
}

func (a *apiHandler) handleTaskDone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 POST")
		return
	}

	var req struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "需要有效的待办 id")
		return
	}

	userID := a.userID(r)
	doneDate := a.core.Clock.Now().Format(period.DateLayout)
	if err := a.core.Repos.Task.MarkDone(r.Context(), userID, req.ID, doneDate); err != nil {
		slog.Error("标记待办完成失败", "id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "标记失败")
		return
	}

	task, err := a.core.Repos.Task.GetByID(r.Context(), userID, req.ID)
	if err != nil || task == nil {
		writeJSON(w, http.StatusOK, map[string]any{"done": true})
		return
	}
	writeJSON(w, http.StatusOK, taskToDTO(task))
}

// ========== 反思问题 ==========

func (a *apiHandler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 POST")
		return
	}

	var req dto.UpsertQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if !validMonthDay(req.MonthDay) {
		writeError(w, http.StatusBadRequest, "month_day 需要 MM-DD 格式")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "问题内容不能为空")
		return
	}

	q := &schema.ReflectionQuestion{MonthDay: req.MonthDay, Text: req.Text}
	if err := a.core.Repos.Question.UpsertQuestion(r.Context(), q); err != nil {
		writeError(w, http.StatusInternalServerError, "保存失败")
		return
	}
	writeJSON(w, http.StatusOK, dto.QuestionDTO{ID: q.ID, MonthDay: q.MonthDay, Text: q.Text})
}

func (a *apiHandler) handleAnswerQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 POST")
		return
	}

	var req dto.AnswerQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if req.QuestionID <= 0 || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "需要 question_id 和非空内容")
		return
	}

	answer := &schema.ReflectionAnswer{
		UserID:     a.userID(r),
		QuestionID: req.QuestionID,
		Year:       a.core.Clock.Now().Year(),
		Content:    req.Content,
	}
	if err := a.core.Repos.Question.CreateAnswer(r.Context(), answer); err != nil {
		slog.Error("保存反思回答失败", "question_id", req.QuestionID, "error", err)
		writeError(w, http.StatusInternalServerError, "保存失败")
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// ========== 辅助 ==========

// userID 取请求指定的用户，缺省用配置里的默认用户
func (a *apiHandler) userID(r *http.Request) int64 {
	if v := r.URL.Query().Get("user"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return a.core.Cfg.App.DefaultUserID
}

func parseYears(raw string, clock period.Clock) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return []int{clock.Now().Year()}, nil
	}
	parts := strings.Split(raw, ",")
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		y, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || y < 1970 || y > 9999 {
			return nil, errors.New("years 参数格式错误: " + raw)
		}
		years = append(years, y)
	}
	return years, nil
}

func validMonthDay(s string) bool {
	if len(s) != 5 || s[2] != '-' {
		return false
	}
	if _, err := period.ParseDate("2024-" + s); err != nil {
		return false
	}
	return true
}

func promptToDTO(p *service.ReminderPrompt) dto.ReminderPromptDTO {
	out := dto.ReminderPromptDTO{
		Kind:       string(p.Kind),
		Date:       p.Date,
		MissedDate: p.MissedDate,
	}
	if p.Window != nil {
		out.Window = &dto.WindowDTO{StartDate: p.Window.StartDate(), EndDate: p.Window.EndDate()}
	}
	if p.Question != nil {
		out.Question = &dto.QuestionDTO{ID: p.Question.ID, MonthDay: p.Question.MonthDay, Text: p.Question.Text}
	}
	return out
}

func summaryToDTO(s *schema.PeriodSummary) dto.PeriodSummaryDTO {
	return dto.PeriodSummaryDTO{
		Type:         s.Type,
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		Overview:     s.Overview,
		Achievements: []string(s.Achievements),
		Patterns:     s.Patterns,
		Suggestions:  s.Suggestions,
		SourceCount:  s.SourceCount,
	}
}

func diaryToDTO(d *schema.Diary) dto.DiaryDTO {
	return dto.DiaryDTO{ID: d.ID, Date: d.Date, Content: d.Content, Mood: d.Mood}
}

func taskToDTO(t *schema.Task) dto.TaskDTO {
	return dto.TaskDTO{ID: t.ID, Title: t.Title, Done: t.Done, DoneDate: t.DoneDate}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("写入响应失败", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
