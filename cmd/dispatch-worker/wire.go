package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"transmit/internal/channel"
	"transmit/internal/channel/email"
	"transmit/internal/channel/push"
	"transmit/internal/channel/sms"
	"transmit/internal/config"
	"transmit/internal/dispatch"
	"transmit/internal/provider"
	"transmit/internal/types"
)

// buildChannels turns the enabled channel sections of cfg into channels.
func buildChannels(cfg *config.Config, logger types.Logger) []channel.Channel {
	engine := channel.NewTextTemplateEngine(nil)
	var channels []channel.Channel

	if cfg.SMS.Enabled {
		opts := []sms.Option{
			sms.WithTemplateEngine(engine),
			sms.WithProviderIDs(cfg.SMS.ProviderIDs...),
			sms.WithLogger(logger.With("channel", "sms")),
		}
		if len(cfg.SMS.Senders) > 0 {
			opts = append(opts, sms.WithFromResolver(senderResolver(cfg.SMS.From, cfg.SMS.Senders)))
		} else if cfg.SMS.From != "" {
			opts = append(opts, sms.WithFrom(types.AsIdentityAddress(cfg.SMS.From)))
		}
		if cfg.SMS.CallbackURL != "" {
			opts = append(opts, sms.WithDeliveryReportCallbackURL(cfg.SMS.CallbackURL))
		}
		c := sms.New(opts...)
		c.Message.AddStringTemplate(cfg.SMS.Template)
		channels = append(channels, c)
	}

	if cfg.Email.Enabled {
		opts := []email.Option{
			email.WithTemplateEngine(engine),
			email.WithProviderIDs(cfg.Email.ProviderIDs...),
			email.WithLogger(logger.With("channel", "email")),
		}
		if cfg.Email.From != "" {
			opts = append(opts, email.WithFrom(types.IdentityAddress{Value: cfg.Email.From, Display: cfg.Email.FromName}))
		}
		if cfg.Email.ReplyTo != "" {
			opts = append(opts, email.WithReplyTo(types.AsIdentityAddress(cfg.Email.ReplyTo)))
		}
		if cfg.Email.CallbackURL != "" {
			opts = append(opts, email.WithDeliveryReportCallbackURL(cfg.Email.CallbackURL))
		}
		c := email.New(opts...)
		addIfSet(c.Subject, cfg.Email.SubjectTemplate)
		addIfSet(c.HTMLBody, cfg.Email.HTMLTemplate)
		addIfSet(c.TextBody, cfg.Email.TextTemplate)
		channels = append(channels, c)
	}

	if cfg.Push.Enabled {
		opts := []push.Option{
			push.WithTemplateEngine(engine),
			push.WithProviderIDs(cfg.Push.ProviderIDs...),
			push.WithLogger(logger.With("channel", "push")),
		}
		if cfg.Push.ImageURL != "" {
			opts = append(opts, push.WithImageURL(cfg.Push.ImageURL))
		}
		if cfg.Push.CallbackURL != "" {
			opts = append(opts, push.WithDeliveryReportCallbackURL(cfg.Push.CallbackURL))
		}
		c := push.New(opts...)
		addIfSet(c.Title, cfg.Push.TitleTemplate)
		addIfSet(c.Body, cfg.Push.BodyTemplate)
		channels = append(channels, c)
	}

	return channels
}

func addIfSet(t *channel.ContentTemplate, tmpl string) {
	if tmpl != "" {
		t.AddStringTemplate(tmpl)
	}
}

// senderResolver picks the sender configured for the dispatch's channel id,
// falling back to def. An empty result leaves the gateway default in place.
func senderResolver(def string, senders map[string]string) channel.ResolverFunc[types.IdentityAddress] {
	return func(_ context.Context, dc *types.DispatchContext) (types.IdentityAddress, error) {
		if s, ok := senders[dc.ChannelID]; ok {
			return types.AsIdentityAddress(s), nil
		}
		return types.AsIdentityAddress(def), nil
	}
}

// buildRegistry registers direct providers ahead of the hand-off queue so
// channels without an allow-list prefer them.
func buildRegistry(cfg *config.Config, awsCfg aws.Config, sqsClient provider.SQSSender, logger types.Logger) (*dispatch.Registry, error) {
	reg, err := dispatch.NewRegistry()
	if err != nil {
		return nil, err
	}

	if cfg.SMS.GatewayURL != "" {
		base := provider.NewBaseClient(&http.Client{Timeout: cfg.SMS.Timeout}, cfg.SMS.GatewayID, "Transmit/"+cfg.Build.Version)
		p := provider.NewHTTPSMSProvider(base, provider.HTTPSMSConfig{
			ID:          cfg.SMS.GatewayID,
			Endpoint:    cfg.SMS.GatewayURL,
			Token:       cfg.SMS.GatewayToken,
			DefaultFrom: cfg.SMS.From,
			Logger:      logger,
		})
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}

	if cfg.Email.Enabled {
		p := provider.NewSESProvider(awsCfg, provider.SESConfig{
			ID:            cfg.Email.SESProviderID,
			DefaultFrom:   cfg.Email.From,
			ConfigSetName: cfg.Email.SESConfigSet,
			Logger:        logger,
		})
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}

	if cfg.AWS.HandoffQueueURL != "" {
		p, err := provider.NewQueueProvider(sqsClient, provider.QueueConfig{
			ID:       cfg.Push.HandoffProviderID,
			QueueURL: cfg.AWS.HandoffQueueURL,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

var _ provider.SQSSender = (*sqs.Client)(nil)
