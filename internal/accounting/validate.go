package accounting

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrMalformedInput marks input whose shape the engine cannot interpret. It is
// the only condition that aborts a computation.
var ErrMalformedInput = errors.New("accounting: malformed input")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(Date); ok {
				return d.Time
			}
			return nil
		}, Date{})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// Validator exposes the shared validator so transport layers apply the same rules.
func Validator() *validator.Validate {
	return validatorInstance()
}

// ValidateAccounts checks the shape of a chart of accounts.
func ValidateAccounts(accounts []Account) error {
	for i := range accounts {
		if err := validatorInstance().Struct(accounts[i]); err != nil {
			return malformed(fmt.Sprintf("accounts[%d]", i), err)
		}
	}
	return nil
}

// ValidateTransactions checks the shape of transactions and their journal entries.
func ValidateTransactions(txns []Transaction) error {
	for i := range txns {
		if err := validatorInstance().Struct(txns[i]); err != nil {
			return malformed(fmt.Sprintf("transactions[%d]", i), err)
		}
	}
	return nil
}

// ValidateExpenses checks the shape of expenses.
func ValidateExpenses(expenses []Expense) error {
	for i := range expenses {
		if err := validatorInstance().Struct(expenses[i]); err != nil {
			return malformed(fmt.Sprintf("expenses[%d]", i), err)
		}
	}
	return nil
}

// Validate checks every collection of the dataset.
func (d Dataset) Validate() error {
	if err := validatorInstance().Struct(d); err != nil {
		return malformed("dataset", err)
	}
	return nil
}

func malformed(where string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s: %s", ErrMalformedInput, where, strings.Join(parts, "; "))
	}
	return fmt.Errorf("%w: %s: %v", ErrMalformedInput, where, err)
}
