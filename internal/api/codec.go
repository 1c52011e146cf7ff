package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/oakmart/orderd/internal/domain/order"
)

// requestBodyLimit bounds request bodies to keep the decoder away from
// unbounded input.
const requestBodyLimit = 1 << 20

// decodeBody returns a decoder over the request body, or nil when the body
// is empty. An absent body is treated as an empty object.
func decodeBody(r *http.Request) (*jx.Decoder, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, requestBodyLimit))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return jx.DecodeBytes(body), nil
}

func decodeCreateRequest(r *http.Request) (order.CreateRequest, error) {
	var req order.CreateRequest
	d, err := decodeBody(r)
	if err != nil {
		return req, err
	}
	if d == nil {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
		return req, nil
	}

	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var line order.LineRequest
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "productId":
						line.ProductID, err = d.Int64()
					case "quantity":
						line.Quantity, err = d.Int()
					default:
						return d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, line)
				return nil
			})
		case "userCouponId":
			if d.Next() == jx.Null {
				return d.Null()
			}
			id, err := d.Int64()
			if err != nil {
				return err
			}
			req.CouponGrantID = &id
			return nil
		default:
			return decodeDeliveryField(d, key, &req.Delivery)
		}
	})
	if err != nil {
		return req, errors.Wrap(err, "decode order request")
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	return req, nil
}

func decodeCreateFromCartRequest(r *http.Request) (order.CreateFromCartRequest, error) {
	var req order.CreateFromCartRequest
	d, err := decodeBody(r)
	if err != nil {
		return req, err
	}
	if d == nil {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
		return req, nil
	}

	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key == "userCouponId" {
			if d.Next() == jx.Null {
				return d.Null()
			}
			id, err := d.Int64()
			if err != nil {
				return err
			}
			req.CouponGrantID = &id
			return nil
		}
		return decodeDeliveryField(d, key, &req.Delivery)
	})
	if err != nil {
		return req, errors.Wrap(err, "decode cart order request")
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	return req, nil
}

func decodeDeliveryField(d *jx.Decoder, key string, dv *order.Delivery) error {
	var err error
	switch key {
	case "recipientName":
		dv.RecipientName, err = d.Str()
	case "recipientPhone":
		dv.RecipientPhone, err = d.Str()
	case "deliveryAddress":
		dv.Address, err = d.Str()
	case "deliveryDetailAddress":
		dv.DetailAddress, err = d.Str()
	case "deliveryMessage":
		dv.Message, err = d.Str()
	default:
		return d.Skip()
	}
	return err
}

func decodeCancelRequest(r *http.Request) (string, error) {
	d, err := decodeBody(r)
	if err != nil {
		return "", err
	}
	if d == nil {
		return "", nil
	}

	var reason string
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key == "cancelReason" {
			var err error
			reason, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		return "", errors.Wrap(err, "decode cancel request")
	}
	return reason, nil
}

func encDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.RawStr(d.String())
}

func encTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("status")
	e.Str(string(o.Status))

	e.FieldStart("totalProductPrice")
	encDecimal(e, o.TotalProductPrice)
	e.FieldStart("discountAmount")
	encDecimal(e, o.DiscountAmount)
	e.FieldStart("deliveryFee")
	encDecimal(e, o.DeliveryFee)
	e.FieldStart("finalPrice")
	encDecimal(e, o.FinalPrice)

	e.FieldStart("coupon")
	if o.Coupon != nil {
		e.ObjStart()
		e.FieldStart("userCouponId")
		e.Int64(o.Coupon.GrantID)
		e.FieldStart("name")
		e.Str(o.Coupon.Name)
		e.FieldStart("type")
		e.Str(string(o.Coupon.Type))
		e.FieldStart("value")
		encDecimal(e, o.Coupon.Value)
		e.ObjEnd()
	} else {
		e.Null()
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Int64(it.ProductID)
		e.FieldStart("productName")
		e.Str(it.ProductName)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		encDecimal(e, it.UnitPrice)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("recipientName")
	e.Str(o.Delivery.RecipientName)
	e.FieldStart("recipientPhone")
	e.Str(o.Delivery.RecipientPhone)
	e.FieldStart("deliveryAddress")
	e.Str(o.Delivery.Address)
	e.FieldStart("deliveryDetailAddress")
	e.Str(o.Delivery.DetailAddress)
	e.FieldStart("deliveryMessage")
	e.Str(o.Delivery.Message)

	if o.CancelReason != "" {
		e.FieldStart("cancelReason")
		e.Str(o.CancelReason)
	}

	e.FieldStart("createdAt")
	encTime(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	encTime(e, o.UpdatedAt)
	e.ObjEnd()
}

func encodePage(e *jx.Encoder, p *order.Page) {
	e.ObjStart()
	e.FieldStart("orders")
	e.ArrStart()
	for i := range p.Orders {
		encodeOrder(e, &p.Orders[i])
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Int64(p.Total)
	e.FieldStart("page")
	e.Int(p.Page)
	e.FieldStart("limit")
	e.Int(p.Limit)
	e.ObjEnd()
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
