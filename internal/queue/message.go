package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
)

func newCallPublishing(call calls.Call) (amqp.Publishing, error) {
	body, err := json.Marshal(call)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode call %s: %w", call.ID, err)
	}
	return amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    call.ID.String(),
		Type:         call.Method(),
		Headers:      amqp.Table{callIDHeader: call.ID.String()},
		Body:         body,
	}, nil
}

func newResultPublishing(result calls.Result) (amqp.Publishing, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode result of %s: %w", result.CallID, err)
	}
	return amqp.Publishing{
		ContentType:   contentTypeJSON,
		DeliveryMode:  amqp.Persistent,
		MessageId:     uuid.NewString(),
		CorrelationId: result.CallID.String(),
		Headers:       amqp.Table{callIDHeader: result.CallID.String()},
		Body:          body,
	}, nil
}

func decodeResult(body []byte) (calls.Result, error) {
	var result calls.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return calls.Result{}, err
	}
	if result.CallID == uuid.Nil {
		return calls.Result{}, fmt.Errorf("result has no call id")
	}
	return result, nil
}
