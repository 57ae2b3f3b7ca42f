package calls

import (
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
)

type ActionKind string

const (
	ActionCreateAccount ActionKind = "CREATE_ACCOUNT"
	ActionTransfer      ActionKind = "TRANSFER"
	ActionDeployCode    ActionKind = "DEPLOY_CODE"
	ActionFunctionCall  ActionKind = "FUNCTION_CALL"
)

func (k ActionKind) String() string {
	return string(k)
}

// Action is one step of a call. Actions of a call are applied in order by the
// receiving host, which is not required to apply them atomically.
type Action struct {
	Kind     ActionKind      `json:"kind"`
	Method   string          `json:"method,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Amount   *sdkmath.Uint   `json:"amount,omitempty"`
	Gas      uint64          `json:"gas,omitempty"`
	CodeSize uint64          `json:"code_size,omitempty"`
}

// Call is a deferred remote invocation issued by Predecessor against Target.
type Call struct {
	ID          uuid.UUID `json:"id"`
	Predecessor string    `json:"predecessor"`
	Target      string    `json:"target"`
	Actions     []Action  `json:"actions"`
}

// Result is delivered back for every submitted call, exactly once.
type Result struct {
	CallID  uuid.UUID       `json:"call_id"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

func IsSuccess(r Result) bool {
	return r.Success
}

func SuccessResult(callID uuid.UUID, value json.RawMessage) Result {
	return Result{CallID: callID, Success: true, Value: value}
}

func FailureResult(callID uuid.UUID, err error) Result {
	return Result{CallID: callID, Success: false, Error: err.Error()}
}

// Method returns the method of the last function call action, which names
// the call in logs and metrics.
func (c Call) Method() string {
	for i := len(c.Actions) - 1; i >= 0; i-- {
		if c.Actions[i].Kind == ActionFunctionCall {
			return c.Actions[i].Method
		}
	}
	if len(c.Actions) > 0 {
		return c.Actions[0].Kind.String()
	}
	return ""
}

// NewFunctionCall builds a single function call with JSON encoded args.
func NewFunctionCall(
	predecessor, target, method string, args any, deposit sdkmath.Uint, gas uint64,
) (Call, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode %s args: %w", method, err)
	}

	return Call{
		ID:          uuid.New(),
		Predecessor: predecessor,
		Target:      target,
		Actions: []Action{{
			Kind:   ActionFunctionCall,
			Method: method,
			Args:   payload,
			Amount: &deposit,
			Gas:    gas,
		}},
	}, nil
}

// NewTransfer builds a native value transfer.
func NewTransfer(predecessor, target string, amount sdkmath.Uint) Call {
	return Call{
		ID:          uuid.New(),
		Predecessor: predecessor,
		Target:      target,
		Actions: []Action{{
			Kind:   ActionTransfer,
			Amount: &amount,
		}},
	}
}
