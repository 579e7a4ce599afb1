package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/nazareth-shop/internal/money"
)

// OrderItem is one line of the confirmation table.
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice int
}

// OrderSummary carries what the confirmation mail shows.
type OrderSummary struct {
	OrderID    string
	BuyerName  string
	Items      []OrderItem
	CouponCode string
	Subtotal   int
	Discount   int
	Total      int
}

// ShortOrderID is the order number shown in subjects.
func ShortOrderID(orderID string) string {
	id := strings.TrimPrefix(orderID, "order_")
	if len(id) > 13 {
		return id[:13]
	}
	return id
}

// BuildOrderConfirmationBody renders the HTML order confirmation.
func BuildOrderConfirmationBody(s OrderSummary) string {
	var itemsHTML strings.Builder
	for _, item := range s.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		fmt.Fprintf(&itemsHTML,
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			html.EscapeString(name),
			item.Quantity,
			money.KRW(item.UnitPrice),
			money.KRW(item.UnitPrice*item.Quantity),
		)
	}

	var discountHTML string
	if s.Discount > 0 {
		label := "할인"
		if s.CouponCode != "" {
			label = fmt.Sprintf("할인 (%s)", html.EscapeString(s.CouponCode))
		}
		discountHTML = fmt.Sprintf(
			`<p style="margin: 4px 0; color: #c0392b;">%s: -%s</p>`, label, money.KRW(s.Discount))
	}

	greeting := "고객님"
	if strings.TrimSpace(s.BuyerName) != "" {
		greeting = html.EscapeString(s.BuyerName) + " 고객님"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Apple SD Gothic Neo', 'Malgun Gothic', sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #1f1f1f; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">주문해 주셔서 감사합니다</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">%s, 결제가 정상적으로 완료되었습니다.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">주문번호</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<h2 style="font-size: 18px; border-bottom: 2px solid #1f1f1f; padding-bottom: 10px;">주문 내역</h2>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">상품명</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">수량</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">단가</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">금액</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<p style="margin: 4px 0;">상품 금액: %s</p>
			%s
			<span style="font-size: 14px; color: #666;">총 결제 금액</span>
			<span style="font-size: 24px; font-weight: bold; color: #1f1f1f; margin-left: 10px;">%s</span>
		</div>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			본 메일은 발신 전용입니다. 문의 사항은 고객센터로 연락해 주세요.
		</p>
	</div>
</body>
</html>`,
		greeting,
		html.EscapeString(s.OrderID),
		itemsHTML.String(),
		money.KRW(s.Subtotal),
		discountHTML,
		money.KRW(s.Total),
	)
}
