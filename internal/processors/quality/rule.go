package quality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/salewatch/internal/config"
	"github.com/bakkerme/salewatch/internal/core"
)

// RuleProcessor keeps the discounts for which the watchlist rule holds.
type RuleProcessor struct {
	name    string
	rule    string
	program *vm.Program
	logger  *slog.Logger
}

func NewRuleProcessor(rule string, logger *slog.Logger) (*RuleProcessor, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil, fmt.Errorf("quality rule expression is required")
	}
	program, err := expr.Compile(rule, expr.Env(config.RuleEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile quality rule: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleProcessor{
		name:    "watchlist_rule",
		rule:    rule,
		program: program,
		logger:  logger,
	}, nil
}

func (p *RuleProcessor) Name() string {
	return p.name
}

func (p *RuleProcessor) Validate() error {
	if p.program == nil {
		return fmt.Errorf("rule %q is not compiled", p.rule)
	}
	return nil
}

// Evaluate returns the records the rule accepts, in order. A record whose
// evaluation errors is kept.
func (p *RuleProcessor) Evaluate(ctx context.Context, records []core.DiscountRecord) ([]core.DiscountRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := core.LoggerFromContext(ctx, p.logger)

	filtered := make([]core.DiscountRecord, 0, len(records))
	for _, record := range records {
		result, err := expr.Run(p.program, ruleEnv(record))
		if err != nil {
			logger.Warn("quality rule failed; keeping discount", "id", record.ID, "rule", p.rule, "error", err)
			filtered = append(filtered, record)
			continue
		}
		if keep, _ := result.(bool); keep {
			filtered = append(filtered, record)
			continue
		}
		logger.Debug("discount dropped by quality rule", "id", record.ID, "label", record.DiscountLabel)
	}
	return filtered, nil
}

func ruleEnv(record core.DiscountRecord) config.RuleEnv {
	return config.RuleEnv{
		Title:           record.Title,
		Platform:        string(record.Platform),
		DiscountPercent: record.DiscountPercent,
		OriginalPrice:   record.OriginalPrice,
		CurrentPrice:    record.CurrentPrice,
		Label:           record.DiscountLabel,
		URL:             record.URL,
	}
}
