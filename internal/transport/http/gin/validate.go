package httpgin

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kirinyoku/revuetix/internal/domain"
)

var registerOnce sync.Once

// registerValidators adds the custom binding tags:
//
//	showdate: a YYYY-MM-DD performance date.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		_ = v.RegisterValidation("showdate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(domain.ShowDateLayout, fl.Field().String())
			return err == nil
		})
	})
}
