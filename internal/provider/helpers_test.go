package provider

import (
	"context"
	"strings"
	"testing"

	"transmit/internal/channel/email"
	"transmit/internal/channel/push"
	"transmit/internal/channel/sms"
	"transmit/internal/types"
)

func identities(values ...string) []types.PlatformIdentity {
	ids := make([]types.PlatformIdentity, 0, len(values))
	for _, v := range values {
		ids = append(ids, types.PlatformIdentity{Addresses: []types.IdentityAddress{types.AsIdentityAddress(v)}})
	}
	return ids
}

func newSms(t *testing.T, to ...string) *sms.Sms {
	t.Helper()
	c := sms.New(
		sms.WithFrom(types.AsIdentityAddress("+15550000000")),
		sms.WithDeliveryReportCallbackURL("https://cb.example.com/sms"),
	)
	c.Message.AddStringTemplate("your code is 1234")

	comm, err := c.GenerateCommunication(context.Background(), &types.DispatchContext{
		ContentModel: &types.ContentModel{Resources: []*types.Resource{
			{Name: "map.png", ContentType: "image/png", Content: strings.NewReader("PNGDATA")},
		}},
		PlatformIdentities: identities(to...),
		TransportPriority:  types.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("generate sms: %v", err)
	}
	return comm.(*sms.Sms)
}

func newEmail(t *testing.T, to ...string) *email.Email {
	t.Helper()
	c := email.New(
		email.WithFrom(types.IdentityAddress{Value: "alerts@example.com", Display: "Alerts"}),
		email.WithReplyTo(types.AsIdentityAddress("support@example.com")),
	)
	c.Subject.AddStringTemplate("Your invoice")
	c.TextBody.AddStringTemplate("Invoice attached.")
	c.HTMLBody.AddStringTemplate("<p>Invoice attached.</p>")

	comm, err := c.GenerateCommunication(context.Background(), &types.DispatchContext{
		ContentModel: &types.ContentModel{Resources: []*types.Resource{
			{Name: "invoice.pdf", ContentType: "application/pdf", Content: strings.NewReader("%PDF-1.7 invoice")},
		}},
		PlatformIdentities: identities(to...),
	})
	if err != nil {
		t.Fatalf("generate email: %v", err)
	}
	return comm.(*email.Email)
}

func newPush(t *testing.T, to ...string) *push.Push {
	t.Helper()
	c := push.New(push.WithImageURL("https://img.example.com/a.png"))
	c.Title.AddStringTemplate("Alert")
	c.Body.AddStringTemplate("Storm incoming")

	comm, err := c.GenerateCommunication(context.Background(), &types.DispatchContext{
		PlatformIdentities: identities(to...),
	})
	if err != nil {
		t.Fatalf("generate push: %v", err)
	}
	return comm.(*push.Push)
}
