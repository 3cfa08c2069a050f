package dto

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// 自定义校验标签
const (
	tagWeightsTotal       = "weights_total"
	tagRangeOrder         = "range_order"
	tagUniqueUniversities = "unique_universities"
)

var translator ut.Translator

// RegisterValidators 在 gin 使用的 validator 实例上注册自定义规则
func RegisterValidators(v *validator.Validate) error {
	// 错误中使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(tagUniqueUniversities, uniqueUniversitiesValidation); err != nil {
		return err
	}
	v.RegisterStructValidation(weightingStructValidation, WeightingRequest{})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, translator); err != nil {
		return err
	}

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{tagWeightsTotal, tagRangeOrder, tagUniqueUniversities} {
		if err := v.RegisterTranslation(tag, translator, noop, translateCustom); err != nil {
			return err
		}
	}
	return nil
}

// ValidationDetails 将校验错误整理为 "field: message; ..." 形式，非校验错误原样返回
func ValidationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Error()
		if translator != nil {
			msg = fe.Translate(translator)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case tagWeightsTotal:
		return "essay, current and past weights must add up to 100"
	case tagRangeOrder:
		return fe.Field() + " must not be greater than its max"
	case tagUniqueUniversities:
		return "university names must be unique (case-insensitive)"
	}
	return fe.Error()
}

// uniqueUniversitiesValidation 大学名称忽略大小写与首尾空白后不得重复
func uniqueUniversitiesValidation(fl validator.FieldLevel) bool {
	items, ok := fl.Field().Interface().([]UniversityItem)
	if !ok {
		return false
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		key := strings.ToLower(strings.TrimSpace(it.Name))
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

func weightingStructValidation(sl validator.StructLevel) {
	w, ok := sl.Current().Interface().(WeightingRequest)
	if !ok {
		return
	}
	if w.EssayWeight+w.CurrentAverageWeight+w.PastAverageWeight != 100 {
		sl.ReportError(w.EssayWeight, "essay_weight", "EssayWeight", tagWeightsTotal, "")
	}

	ranges := []struct {
		min, max int
		field    string
		name     string
	}{
		{w.ExcellentMin, w.ExcellentMax, "excellent_min", "ExcellentMin"},
		{w.StrongMin, w.StrongMax, "strong_min", "StrongMin"},
		{w.CompetitiveMin, w.CompetitiveMax, "competitive_min", "CompetitiveMin"},
		{w.DevelopingMin, w.DevelopingMax, "developing_min", "DevelopingMin"},
	}
	for _, r := range ranges {
		if r.min > r.max {
			sl.ReportError(r.min, r.field, r.name, tagRangeOrder, "")
		}
	}
}
