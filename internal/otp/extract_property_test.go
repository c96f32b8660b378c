package otp

import (
	"fmt"
	"reflect"
	"regexp"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_Extract(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	// 4-8 位数字验证码生成器
	numericCodeGen := gen.IntRange(4, 8).FlatMap(func(length interface{}) gopter.Gen {
		return gen.SliceOfN(length.(int), gen.NumChar()).Map(func(chars []rune) string {
			return string(chars)
		})
	}, reflect.TypeOf(""))

	// 不含数字的随机文本生成器
	randomTextGen := gen.SliceOfN(20, gen.AlphaChar()).Map(func(chars []rune) string {
		return string(chars)
	})

	properties.Property("关键词附近的唯一候选总是被提取", prop.ForAll(
		func(code, prefix, suffix string) bool {
			content := fmt.Sprintf("%s your code is %s %s", prefix, code, suffix)
			return Extract(content) == code
		},
		numericCodeGen,
		randomTextGen,
		randomTextGen,
	))

	properties.Property("返回值要么为空要么是文本中的候选", prop.ForAll(
		func(text string) bool {
			got := Extract(text)
			if got == "" {
				return true
			}
			return regexp.MustCompile(`\b`+got+`\b`).MatchString(text)
		},
		gen.AnyString(),
	))

	properties.Property("六位候选优于同窗口的四位候选", prop.ForAll(
		func(six, four string) bool {
			content := fmt.Sprintf("verification code %s or %s", six, four)
			return Extract(content) == six
		},
		gen.SliceOfN(6, gen.NumChar()).Map(func(chars []rune) string { return string(chars) }),
		gen.SliceOfN(4, gen.NumChar()).Map(func(chars []rune) string { return string(chars) }),
	))

	properties.TestingRun(t)
}
