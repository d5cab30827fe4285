package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"template-scout/internal/domain"

	"github.com/spf13/cobra"
)

const defaultRecentLimit = 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "template-scout",
		Short: "按自然语言需求寻找 GitHub 仓库并生成模板改造方案",
		Long: `template-scout 根据一句需求描述在 GitHub 上搜索候选仓库，
按质量和相关度排序，并能把选中的仓库转换成个性化的项目模板方案。

配置来自环境变量、.env 文件和可选的配置文件 (--config)。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "配置文件路径 (yaml/json/toml)")

	root.AddCommand(
		newSearchCommand(),
		newConvertCommand(),
		newInspectCommand(),
		newRecentCommand(),
	)
	return root
}

func newSearchCommand() *cobra.Command {
	var (
		language  string
		minStars  int
		maxAge    int
		requester string
	)
	cmd := &cobra.Command{
		Use:   "search <description>",
		Short: "按需求描述搜索并排序仓库",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := domain.SearchFilters{Language: language}
			if cmd.Flags().Changed("min-stars") {
				filters.MinStars = &minStars
			}
			if cmd.Flags().Changed("max-age") {
				filters.MaxAgeDays = &maxAge
			}

			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				repos, err := app.Discovery.Search(ctx, strings.Join(args, " "), filters, requester)
				if err != nil {
					return err
				}
				for i := range repos {
					repos[i].Raw = nil
				}
				return writeJSON(cmd.OutOrStdout(), repos)
			})
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "限定主语言")
	cmd.Flags().IntVar(&minStars, "min-stars", 0, "最少 star 数")
	cmd.Flags().IntVar(&maxAge, "max-age", 0, "最近多少天内有推送")
	cmd.Flags().StringVar(&requester, "requester", "", "请求方 ID，非空时结果写入数据库")
	return cmd
}

func newConvertCommand() *cobra.Command {
	var (
		uc        domain.UserContext
		requester string
	)
	cmd := &cobra.Command{
		Use:   "convert <repo-url> <description>",
		Short: "把仓库转换成个性化模板方案",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var userCtx *domain.UserContext
			if hasUserContext(uc) {
				userCtx = &uc
			}

			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				result, err := app.Conversion.Convert(ctx, args[0], strings.Join(args[1:], " "), userCtx, requester)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&uc.ProjectName, "project-name", "", "新项目名称")
	cmd.Flags().StringVar(&uc.PreferredStyle, "style", "", "偏好的视觉风格")
	cmd.Flags().StringVar(&uc.DeploymentPreference, "deploy", "", "部署平台")
	cmd.Flags().StringVar(&uc.TargetAudience, "audience", "", "目标用户")
	cmd.Flags().StringSliceVar(&uc.AdditionalFeatures, "feature", nil, "额外功能，可重复")
	cmd.Flags().StringVar(&requester, "requester", "", "请求方 ID")
	return cmd
}

func hasUserContext(uc domain.UserContext) bool {
	return uc.ProjectName != "" || uc.PreferredStyle != "" || uc.DeploymentPreference != "" ||
		uc.TargetAudience != "" || len(uc.AdditionalFeatures) > 0
}

// inspectOutput 仓库详情和根目录列表
type inspectOutput struct {
	Details *domain.RepoDetails `json:"details"`
	Files   []domain.FileEntry  `json:"files"`
}

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <repo-url>",
		Short: "查看仓库详情和根目录结构",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				details, err := app.Repos.GetRepoDetails(ctx, args[0])
				if err != nil {
					return err
				}
				files, err := app.Repos.GetRepoStructure(ctx, args[0])
				if err != nil {
					return err
				}
				details.Raw = nil
				return writeJSON(cmd.OutOrStdout(), inspectOutput{Details: details, Files: files})
			})
		},
	}
}

func newRecentCommand() *cobra.Command {
	var (
		requester string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "列出某个请求方最近保存的仓库",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				records, err := app.Discovery.RecentRepositories(ctx, requester, limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().StringVar(&requester, "requester", "", "请求方 ID")
	cmd.Flags().IntVar(&limit, "limit", defaultRecentLimit, "最多返回条数")
	_ = cmd.MarkFlagRequired("requester")
	return cmd
}

// runWithApp 每条命令单独组装依赖，结束后释放
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	configPath, _ := cmd.Flags().GetString("config")

	container, err := buildContainer(configPath)
	if err != nil {
		return err
	}
	return container.Invoke(func(app *App) error {
		defer app.Close()
		return fn(cmd.Context(), app)
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
