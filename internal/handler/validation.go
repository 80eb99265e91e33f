package handler

import (
	"fmt"
	"sync"

	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// customValidations 请求绑定使用的自定义校验规则
var customValidations = map[string]validator.Func{
	"approval_method": func(fl validator.FieldLevel) bool {
		return model.ApprovalMethod(fl.Field().String()).Valid()
	},
	"pool_status": func(fl validator.FieldLevel) bool {
		return model.PoolStatus(fl.Field().String()).Valid()
	},
}

// RegisterValidators 把自定义校验规则注册到 gin 的校验器
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Error("register validators: unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		if err := registerValidations(v, customValidations); err != nil {
			logger.Error("register validators: %v", err)
		}
	})
}

func registerValidations(v *validator.Validate, rules map[string]validator.Func) error {
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("validation %q: %w", tag, err)
		}
	}
	return nil
}
