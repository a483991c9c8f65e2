package handlers

import (
	"reflect"
	"strings"

	"project-management-api/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type enum interface {
	Valid() bool
}

// RegisterValidators adds the domain enum tags (role, project_status,
// task_status, task_priority) to gin's validator and reports fields by their
// JSON name.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	validators := map[string]validator.Func{
		"role":           enumValidator[models.Role](),
		"project_status": enumValidator[models.ProjectStatus](),
		"task_status":    enumValidator[models.TaskStatus](),
		"task_priority":  enumValidator[models.TaskPriority](),
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func enumValidator[T interface {
	~string
	enum
}]() validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		return T(field.String()).Valid()
	}
}
