package noop

import (
	"context"

	"github.com/trackforge/previewd/pkg/domain"
)

const TYPE string = "noop"

type Notifier struct{}

func New() *Notifier {
	return &Notifier{}
}

func (notifier *Notifier) Notify(_ context.Context, _ *domain.MessageContext) error {
	return nil
}

func (notifier *Notifier) Type() string {
	return TYPE
}
