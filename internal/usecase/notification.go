package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vpn-billing/internal/domain/model"
)

const dateLayout = "02.01.2006"

func payerNotice(res *FulfillResult) string {
	switch res.Kind {
	case model.PurchaseSubscription:
		if res.ExpireAt != nil {
			return fmt.Sprintf("✅ Payment received. Your subscription is active until %s.", res.ExpireAt.Format(dateLayout))
		}
		return "✅ Payment received. Your subscription has been extended."
	case model.PurchaseOption:
		return "✅ Payment received. The add-on has been applied to your account."
	default:
		return fmt.Sprintf("✅ Payment received. %s %s added to your balance.", res.Credited.StringFixed(2), res.Currency)
	}
}

func referrerNotice(commission decimal.Decimal, currency string) string {
	return fmt.Sprintf("🎁 Your referral made a purchase. %s %s credited to your balance.", commission.StringFixed(2), currency)
}

func expiryOf(p model.AccountPatch) *time.Time {
	if p.ExpireAt == nil {
		return nil
	}
	t := *p.ExpireAt
	return &t
}
