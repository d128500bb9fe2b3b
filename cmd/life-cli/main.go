package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yuqie6/LifeMirror/internal/bootstrap"
	"github.com/yuqie6/LifeMirror/internal/period"
	"github.com/yuqie6/LifeMirror/internal/schema"
	"github.com/yuqie6/LifeMirror/internal/service"
)

var (
	cfgFile string
	userID  int64
	core    *bootstrap.Core
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "life",
		Short: "LifeMirror - 周期回顾与提醒引擎",
		Long:  `LifeMirror 在本地聚合你的日记与待办，按周/月生成 AI 回顾，并在合适的时机提醒你记录与反思。`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			core, err = bootstrap.NewCore(cfgFile)
			if err != nil {
				slog.Error("初始化失败", "error", err)
				os.Exit(1)
			}
			if userID == 0 {
				userID = core.Cfg.App.DefaultUserID
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if core != nil {
				core.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().Int64VarP(&userID, "user", "u", 0, "用户 ID（缺省用配置里的默认用户）")

	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(windowsCmd())
	rootCmd.AddCommand(remindersCmd())
	rootCmd.AddCommand(diaryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// reportCmd 生成周/月回顾
func reportCmd() *cobra.Command {
	var periodType string
	var date string
	var force bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "生成指定窗口的周/月回顾",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			if !core.Clients.DeepSeek.IsConfigured() {
				fmt.Println("⚠️  DeepSeek API Key 未配置")
				fmt.Println("   请设置环境变量: LIFEMIRROR_AI_DEEPSEEK_API_KEY")
				fmt.Println("   或在 config.yaml 中配置")
				os.Exit(1)
			}

			if date == "" {
				date = core.Clock.Now().Format(period.DateLayout)
			}
			day, err := period.ParseDate(date)
			if err != nil {
				fmt.Printf("❌ 日期格式错误: %s\n", date)
				os.Exit(1)
			}

			var window period.Window
			switch periodType {
			case schema.PeriodWeek:
				window = period.WeekOf(day)
			case schema.PeriodMonth:
				window = period.MonthOf(day)
			default:
				fmt.Printf("❌ 未知周期类型: %s（支持 week / month）\n", periodType)
				os.Exit(1)
			}

			fmt.Printf("📊 正在生成 %s 至 %s 的回顾...\n\n", window.StartDate(), window.EndDate())

			row, err := core.Services.Report.Generate(ctx, userID, periodType, window, force)
			if err != nil {
				printGenerateError(err)
				os.Exit(1)
			}

			printSummary(row)
		},
	}

	cmd.Flags().StringVar(&periodType, "type", schema.PeriodWeek, "周期类型: week / month")
	cmd.Flags().StringVar(&date, "date", "", "窗口内任意一天 (YYYY-MM-DD)，缺省为今天")
	cmd.Flags().BoolVar(&force, "force", false, "已有回顾时重新生成")
	return cmd
}

func printGenerateError(err error) {
	switch {
	case errors.Is(err, service.ErrWindowNotElapsed):
		fmt.Println("⏳ 窗口尚未结束，等它过去再来回顾")
	case errors.Is(err, service.ErrEmptyWindow):
		fmt.Println("📭 这个窗口没有任何记录，写点日记再来吧")
	case errors.Is(err, service.ErrGenerating):
		fmt.Println("🔁 这个窗口正在生成中，稍后再试")
	case errors.Is(err, service.ErrExternalCall):
		fmt.Printf("❌ AI 调用失败: %v\n", err)
	default:
		fmt.Printf("❌ 生成失败: %v\n", err)
	}
}

func printSummary(row *schema.PeriodSummary) {
	fmt.Printf("📅 %s 至 %s（%s）\n", row.StartDate, row.EndDate, periodLabel(row.Type))
	fmt.Printf("   源记录: %d 条\n\n", row.SourceCount)
	fmt.Println("【概述】")
	fmt.Println(row.Overview)
	if len(row.Achievements) > 0 {
		fmt.Println("\n【主要收获】")
		for _, a := range row.Achievements {
			fmt.Println("  • " + a)
		}
	}
	if row.Patterns != "" {
		fmt.Println("\n【状态分析】")
		fmt.Println(row.Patterns)
	}
	if row.Suggestions != "" {
		fmt.Println("\n【建议】")
		fmt.Println(row.Suggestions)
	}
}

func periodLabel(t string) string {
	if t == schema.PeriodMonth {
		return "月度回顾"
	}
	return "周回顾"
}

// windowsCmd 列出可回顾的周期窗口
func windowsCmd() *cobra.Command {
	var periodType string
	var yearsFlag string

	cmd := &cobra.Command{
		Use:   "windows",
		Short: "列出有记录的周期窗口",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			years := []int{core.Clock.Now().Year()}
			if yearsFlag != "" {
				years = years[:0]
				for _, p := range strings.Split(yearsFlag, ",") {
					y, err := strconv.Atoi(strings.TrimSpace(p))
					if err != nil {
						fmt.Printf("❌ years 参数格式错误: %s\n", yearsFlag)
						os.Exit(1)
					}
					years = append(years, y)
				}
			}

			var aggs []service.PeriodAggregate
			var err error
			switch periodType {
			case schema.PeriodWeek:
				aggs, err = core.Services.Report.AggregateWeeks(ctx, userID, years)
			case schema.PeriodMonth:
				aggs, err = core.Services.Report.AggregateMonths(ctx, userID, years)
			default:
				fmt.Printf("❌ 未知周期类型: %s（支持 week / month）\n", periodType)
				os.Exit(1)
			}
			if err != nil {
				fmt.Printf("❌ 聚合失败: %v\n", err)
				os.Exit(1)
			}

			if len(aggs) == 0 {
				fmt.Println("📭 这些年份里没有任何记录")
				return
			}

			fmt.Printf("📆 共 %d 个窗口\n\n", len(aggs))
			for _, agg := range aggs {
				mark := "  "
				if agg.HasSummary {
					mark = "✅"
				}
				fmt.Printf("%s %s 至 %s  记录 %d 条\n", mark, agg.Window.StartDate(), agg.Window.EndDate(), agg.SourceCount)
			}
		},
	}

	cmd.Flags().StringVar(&periodType, "type", schema.PeriodWeek, "周期类型: week / month")
	cmd.Flags().StringVar(&yearsFlag, "years", "", "年份列表，逗号分隔，缺省为今年")
	return cmd
}

// remindersCmd 检查并展示当前提醒
func remindersCmd() *cobra.Command {
	var resolve string

	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "检查当前提醒，或关闭指定类别",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			core.Services.Notifier.SetUser(ctx, userID)

			if resolve != "" {
				kind := schema.ReminderKind(resolve)
				if !kind.Valid() {
					fmt.Printf("❌ 未知的提醒类别: %s\n", resolve)
					os.Exit(1)
				}
				if core.Services.Notifier.Resolve(kind) {
					fmt.Printf("✅ 已关闭提醒: %s\n", kind)
				} else {
					fmt.Printf("当前没有打开的 %s 提醒\n", kind)
				}
				return
			}

			prompts := core.Services.Notifier.Prompts()
			if len(prompts) == 0 {
				fmt.Println("🎉 当前没有需要处理的提醒")
				return
			}
			fmt.Printf("🔔 %d 条提醒\n\n", len(prompts))
			for _, p := range prompts {
				fmt.Printf("  [%s] ", p.Kind)
				switch p.Kind {
				case schema.ReminderDiaryMissing:
					fmt.Printf("昨天（%s）还没写日记\n", p.MissedDate)
				case schema.ReminderWeeklySummary, schema.ReminderMonthlySummary:
					if p.Window != nil {
						fmt.Printf("%s 至 %s 的回顾可以生成了\n", p.Window.StartDate(), p.Window.EndDate())
					} else {
						fmt.Println("回顾可以生成了")
					}
				case schema.ReminderDailyQuestion:
					if p.Question != nil {
						fmt.Printf("今日反思: %s\n", p.Question.Text)
					} else {
						fmt.Println("今天的反思问题还没回答")
					}
				default:
					fmt.Println()
				}
			}
		},
	}

	cmd.Flags().StringVar(&resolve, "resolve", "", "关闭指定类别的提醒")
	return cmd
}

// diaryCmd 写入或查看日记
func diaryCmd() *cobra.Command {
	var date string
	var mood string

	cmd := &cobra.Command{
		Use:   "diary [内容]",
		Short: "写入今天（或指定日期）的日记；不带内容时查看",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			if date == "" {
				date = core.Clock.Now().Format(period.DateLayout)
			}
			if _, err := period.ParseDate(date); err != nil {
				fmt.Printf("❌ 日期格式错误: %s\n", date)
				os.Exit(1)
			}

			if len(args) == 0 {
				diary, err := core.Repos.Diary.GetByDate(ctx, userID, date)
				if err != nil {
					fmt.Printf("❌ 查询失败: %v\n", err)
					os.Exit(1)
				}
				if diary == nil {
					fmt.Printf("📭 %s 没有日记\n", date)
					return
				}
				fmt.Printf("📅 %s", diary.Date)
				if diary.Mood != "" {
					fmt.Printf("  心情: %s", diary.Mood)
				}
				fmt.Println()
				fmt.Println(diary.Content)
				return
			}

			diary := &schema.Diary{
				UserID:  userID,
				Date:    date,
				Content: strings.Join(args, " "),
				Mood:    mood,
			}
			if err := core.Repos.Diary.Upsert(ctx, diary); err != nil {
				fmt.Printf("❌ 保存失败: %v\n", err)
				os.Exit(1)
			}
			if core.Services.RAG != nil {
				if err := core.Services.RAG.IndexDiary(ctx, diary); err != nil {
					slog.Warn("索引日记到记忆库失败", "error", err)
				}
			}
			fmt.Printf("✅ 已保存 %s 的日记\n", date)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "日期 (YYYY-MM-DD)，缺省为今天")
	cmd.Flags().StringVar(&mood, "mood", "", "当天心情")
	return cmd
}
