package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trackforge/previewd/pkg/adapters/notifier/noop"
	"github.com/trackforge/previewd/pkg/adapters/notifier/sqs"
	"github.com/trackforge/previewd/pkg/config"
	"github.com/trackforge/previewd/pkg/domain"
	"gopkg.in/yaml.v2"
)

const (
	noopType string = "noop"
	sqsType  string = "sqs"
)

// Notifier announces a finished publication so the storefront's catalog
// worker can persist the asset→preview mapping. The pipeline itself stores
// nothing durable.
type Notifier interface {
	Notify(ctx context.Context, msg *domain.MessageContext) error
	Type() string
}

func New(l *slog.Logger, conf config.NotifierConfig) (Notifier, error) {
	specificConf, err := yaml.Marshal(conf.Config)
	if err != nil {
		return nil, fmt.Errorf("error serializing notifier config: %w", err)
	}

	switch conf.Type {
	case noopType, "":
		return noop.New(), nil
	case sqsType:
		sqsConf, err := sqs.ParseConfig(specificConf)
		if err != nil {
			return nil, fmt.Errorf("error parsing SQS-specific config: %w", err)
		}

		queue, err := sqs.New(l, sqsConf)
		if err != nil {
			return nil, fmt.Errorf("error creating SQS notifier: %w", err)
		}

		return queue, nil
	default:
		return nil, fmt.Errorf("invalid notifier type %s", conf.Type)
	}
}
