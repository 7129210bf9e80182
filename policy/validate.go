// policy/validate.go
package policy

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	networkRegex = regexp.MustCompile(`^[a-z0-9-]+$`)
	cidrRegex    = regexp.MustCompile(`^(([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])\.){3}([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])/([0-9]|[1-2][0-9]|3[0-2])$`)
	tagPartRegex = regexp.MustCompile(`^[a-zA-Z0-9.-]+$`)
	portRegex    = regexp.MustCompile(`^([0-9]{1,4}|[1-5][0-9]{4}|6[0-4][0-9]{3}|65[0-4][0-9]{2}|655[0-2][0-9]|6553[0-5])$`)
)

// validate is shared; validator caches struct metadata per type.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "portspec", func(fl validator.FieldLevel) bool {
		return ValidPort(fl.Field().String())
	})
	mustRegister(v, "cidr4", func(fl validator.FieldLevel) bool {
		return cidrRegex.MatchString(fl.Field().String())
	})
	mustRegister(v, "netname", func(fl validator.FieldLevel) bool {
		return networkRegex.MatchString(fl.Field().String())
	})
	mustRegister(v, "tagpart", func(fl validator.FieldLevel) bool {
		return tagPartRegex.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidPort reports whether s is a port in 0-65535 or an inclusive
// low-high range with low <= high.
func ValidPort(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) > 2 {
		return false
	}
	for _, p := range parts {
		if !portRegex.MatchString(p) {
			return false
		}
	}
	if len(parts) == 1 {
		return true
	}
	low, _ := strconv.Atoi(parts[0])
	high, _ := strconv.Atoi(parts[1])
	return low <= high
}

// SplitPort returns the bounds of a port token; "8080" gives 8080, 8080.
func SplitPort(s string) (from, to int, err error) {
	low, high, isRange := strings.Cut(s, "-")
	if from, err = strconv.Atoi(low); err != nil {
		return 0, 0, err
	}
	if !isRange {
		return from, from, nil
	}
	if to, err = strconv.Atoi(high); err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

// ruleFields is the validator view of a rule. Field order is the check order.
type ruleFields struct {
	Ports    []string `json:"ports" validate:"dive,portspec"`
	Action   string   `json:"action" validate:"oneof=allow deny"`
	Protocol string   `json:"protocol" validate:"oneof=tcp udp icmp esp ah sctp all"`
}

var ruleReasons = map[string]string{
	"portspec": "ports must be between 0 and 65535 and ranges must be low-high",
	"oneof":    "value is not one of the accepted values",
}

func validateRule(f ruleFields) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid(ErrInvalidRule, "", "", err.Error())
	}
	fe := verrs[0]
	return invalid(ErrInvalidRule, fe.Field(), valueString(fe.Value()), ruleReasons[fe.Tag()])
}

func valueString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func validRegion(region string) bool {
	return validate.Var(region, "oneof="+strings.Join(AWSRegions, " ")) == nil
}

func validNetworkName(network string) bool {
	return validate.Var(network, "netname") == nil
}

func validCidr(cidr string) bool {
	return validate.Var(cidr, "cidr4") == nil
}

// validTag reports whether both halves of t survive the key=value text form.
func validTag(t Tag) bool {
	return validate.Var(t.Key, "tagpart") == nil && validate.Var(t.Value, "tagpart") == nil
}
