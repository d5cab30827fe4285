package service

import (
	"context"
	"strings"
	"time"

	"template-scout/internal/adapter/analyzer"
	"template-scout/internal/adapter/rules"
	"template-scout/internal/common"
	"template-scout/internal/domain"
	"template-scout/internal/logger"
	"template-scout/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultAITimeout  = 60 * time.Second
	templateTechLimit = 8
)

// ConversionService 仓库 -> 个性化模板方案
type ConversionService struct {
	repos      *RepoService
	strategies []port.ConversionStrategy
	publisher  port.ResultPublisher
	aiTimeout  time.Duration
	log        *zap.Logger
}

// NewConversionService 按顺序尝试 strategies，规则引擎总是作为最后一环追加
// publisher 可以为 nil
func NewConversionService(repos *RepoService, strategies []port.ConversionStrategy, publisher port.ResultPublisher, aiTimeout time.Duration, log *zap.Logger) *ConversionService {
	chain := make([]port.ConversionStrategy, 0, len(strategies)+1)
	for _, st := range strategies {
		if st != nil {
			chain = append(chain, st)
		}
	}
	chain = append(chain, rules.NewEngine())

	if aiTimeout <= 0 {
		aiTimeout = defaultAITimeout
	}
	return &ConversionService{
		repos:      repos,
		strategies: chain,
		publisher:  publisher,
		aiTimeout:  aiTimeout,
		log:        logger.OrNop(log),
	}
}

// Strategies 生效中的策略名，按尝试顺序
func (s *ConversionService) Strategies() []string {
	names := make([]string, 0, len(s.strategies))
	for _, st := range s.strategies {
		names = append(names, st.Name())
	}
	return names
}

// Convert 只在参数错误或详情获取失败时返回错误
func (s *ConversionService) Convert(ctx context.Context, repoURL, description string, uc *domain.UserContext, requesterID string) (*domain.ConversionResult, error) {
	log := s.log.With(zap.String("request_id", uuid.NewString()))

	if strings.TrimSpace(description) == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "模板描述不能为空")
	}
	ref, err := parseRef(repoURL)
	if err != nil {
		return nil, err
	}

	details, err := s.repos.details(ctx, ref)
	if err != nil {
		log.Warn("仓库详情获取失败", zap.String("repo", ref.FullName()), zap.Error(err))
		return nil, err
	}

	files := s.files(ctx, log, ref)
	cc := &domain.ConversionContext{
		Repo:            *details,
		Files:           files,
		UserDescription: description,
		UserContext:     uc,
	}
	cc.Repo.Raw = nil
	if cc.Repo.Name == "" {
		cc.Repo.Name = ref.Name
	}

	plan, strategy := s.runChain(ctx, log, cc)

	// 请求已取消时不交付半成品
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	projectName := ""
	if uc != nil {
		projectName = uc.ProjectName
	}
	result := &domain.ConversionResult{
		Plan:          *plan,
		TemplateName:  TemplateName(cc.Repo.Name, description, projectName),
		TechStack:     templateTechStack(cc),
		SourceRepo:    ref.FullName(),
		SourceRepoURL: ref.CanonicalURL(),
		RequesterID:   requesterID,
		Strategy:      strategy,
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, result); err != nil {
			log.Warn("转换结果推送失败", zap.String("template", result.TemplateName), zap.Error(err))
		}
	}

	log.Info("模板转换完成",
		zap.String("repo", ref.FullName()),
		zap.String("strategy", strategy),
		zap.Int("files", len(files)),
	)
	return result, nil
}

// files 目录结构只是参考信息，任何失败都降级为空
func (s *ConversionService) files(ctx context.Context, log *zap.Logger, ref domain.RepoRef) []string {
	entries, err := s.repos.structure(ctx, ref)
	if err != nil {
		log.Warn("目录结构不可用", zap.String("repo", ref.FullName()), zap.Error(err))
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if len(names) == domain.MaxContextFiles {
			break
		}
		names = append(names, e.Name)
	}
	return names
}

// runChain 第一个给出完整方案的策略胜出
func (s *ConversionService) runChain(ctx context.Context, log *zap.Logger, cc *domain.ConversionContext) (*domain.ConversionPlan, string) {
	for _, st := range s.strategies {
		attemptCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
		started := time.Now()
		plan, err := st.Convert(attemptCtx, cc)
		cancel()

		if err == nil && plan.Complete() {
			log.Debug("转换策略成功", zap.String("strategy", st.Name()), zap.Duration("elapsed", time.Since(started)))
			return plan, st.Name()
		}
		if err == nil {
			err = common.NewError(common.ErrCodeAIProcessing, "方案字段不完整")
		}
		log.Warn("转换策略失败，尝试下一个", zap.String("strategy", st.Name()), zap.Error(err))
	}

	// 链尾的规则引擎不会失败，这里只是兜底
	plan, _ := rules.NewEngine().Convert(ctx, cc)
	return plan, "rules"
}

func templateTechStack(cc *domain.ConversionContext) []string {
	var lang []string
	if cc.Repo.Language != "" {
		lang = []string{cc.Repo.Language}
	}
	return analyzer.MergeTechStack(templateTechLimit,
		lang,
		cc.Repo.Topics,
		analyzer.MatchTechKeywords(cc.Repo.Name+" "+cc.Repo.Description),
		rules.ManifestStack(cc.Files),
	)
}
