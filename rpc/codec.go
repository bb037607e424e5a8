package rpc

import (
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/zpass/credential"
	"xdao.co/zpass/zerr"
)

func badRequest(format string, args ...any) error {
	return zerr.Newf(zerr.KindInput, zerr.RuleInputRequest, format, args...)
}

// request reads typed members out of a Struct.
type request struct{ s *structpb.Struct }

func (r request) value(key string) (*structpb.Value, bool) {
	v, ok := r.s.GetFields()[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

// optString returns the member and whether it was present.
func (r request) optString(key string) (string, bool, error) {
	v, ok := r.value(key)
	if !ok {
		return "", false, nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", false, badRequest("%s must be a string", key)
	}
	return s.StringValue, true, nil
}

func (r request) str(key string) (string, error) {
	s, ok, err := r.optString(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", badRequest("%s is required", key)
	}
	return s, nil
}

func (r request) strings(key string) ([]string, error) {
	v, ok := r.value(key)
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, badRequest("%s must be a list of strings", key)
	}
	out := make([]string, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s, isString := item.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return nil, badRequest("%s[%d] must be a string", key, i)
		}
		out[i] = s.StringValue
	}
	return out, nil
}

func (r request) index(key string) (int, error) {
	v, ok := r.value(key)
	if !ok {
		return 0, badRequest("%s is required", key)
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, badRequest("%s must be a number", key)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, badRequest("%s must be a non-negative integer", key)
	}
	return int(f), nil
}

// entries reads [{name, token}, ...] in order.
func (r request) entries(key string) ([]credential.Pair, bool, error) {
	v, ok := r.value(key)
	if !ok {
		return nil, false, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, false, badRequest("%s must be a list", key)
	}
	out := make([]credential.Pair, len(list.GetValues()))
	for i, item := range list.GetValues() {
		entry := item.GetStructValue()
		if entry == nil {
			return nil, false, badRequest("%s[%d] must be an object", key, i)
		}
		er := request{entry}
		name, err := er.str("name")
		if err != nil {
			return nil, false, err
		}
		token, err := er.str("token")
		if err != nil {
			return nil, false, err
		}
		out[i] = credential.Pair{Name: name, Token: token}
	}
	return out, true, nil
}

func stringList(ss []string) *structpb.Value {
	vals := make([]*structpb.Value, len(ss))
	for i, s := range ss {
		vals[i] = structpb.NewStringValue(s)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func response(fields map[string]*structpb.Value) *structpb.Struct {
	return &structpb.Struct{Fields: fields}
}
