package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Faultbox/puppet/internal/command"
	"github.com/Faultbox/puppet/internal/engine/cubism"
)

// defaultMotionPriority is used when /motion has no priority parameter.
const defaultMotionPriority = cubism.PriorityForce

func required(r *http.Request, keys ...string) (string, error) {
	for _, k := range keys {
		if v := strings.TrimSpace(r.FormValue(k)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("missing %s parameter", keys[0])
}

func parseFloat(r *http.Request, key string) (float32, error) {
	raw, err := required(r, key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %q is not finite", key, raw)
	}
	return float32(v), nil
}

func parseMotion(r *http.Request) (command.Command, error) {
	group, err := required(r, "id")
	if err != nil {
		return nil, err
	}
	priority := defaultMotionPriority
	if raw := strings.TrimSpace(r.FormValue("priority")); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < cubism.PriorityNone || p > cubism.PriorityForce {
			return nil, fmt.Errorf("priority: %q is not in 0..3", raw)
		}
		priority = p
	}
	return command.PlayMotion{Group: group, Priority: priority}, nil
}

func parseExpression(r *http.Request) (command.Command, error) {
	name, err := required(r, "name", "id")
	if err != nil {
		return nil, err
	}
	return command.SetExpression{Name: name}, nil
}

func parseParameter(r *http.Request) (command.Command, error) {
	id, err := required(r, "id")
	if err != nil {
		return nil, err
	}
	v, err := parseFloat(r, "value")
	if err != nil {
		return nil, err
	}
	return command.SetParameter{ID: id, Value: v}, nil
}

func parseScale(r *http.Request) (command.Command, error) {
	v, err := parseFloat(r, "value")
	if err != nil {
		return nil, err
	}
	if v <= 0 {
		return nil, errors.New("value: scale must be positive")
	}
	return command.SetScale{Value: v}, nil
}

func parseModel(r *http.Request) (command.Command, error) {
	name, err := required(r, "name")
	if err != nil {
		return nil, err
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("name: %q is not a model name", name)
	}
	return command.LoadModel{Name: name}, nil
}
