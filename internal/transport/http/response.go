package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构，所有接口（含错误）都走这个信封。
type Response struct {
	Code int         `json:"code"`           // 业务状态码，与 HTTP 状态码一致
	Msg  string      `json:"msg"`            // 中文提示信息
	Data interface{} `json:"data,omitempty"` // 数据载荷，错误响应为空
}

// 业务状态码，取值跟随 HTTP 语义
const (
	CodeSuccess       = 200 // 成功
	CodeCreated       = 201 // 创建成功（别名注册、域名新增）
	CodeBadRequest    = 400 // 参数错误、地址或域名校验不过
	CodeUnauthorized  = 401 // 凭证缺失，邮箱尚未授权
	CodeNotFound      = 404 // 邮件或域名不存在
	CodeInternalError = 500 // 存储或上游邮箱故障
)

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Msg: "成功", Data: data})
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Msg: msg, Data: data})
}

// Created 创建成功响应（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: CodeCreated, Msg: "创建成功", Data: data})
}

// BadRequest 请求参数或校验错误（400）
func BadRequest(c *gin.Context, msg string) {
	fail(c, http.StatusBadRequest, CodeBadRequest, msg)
}

// Unauthorized 凭证缺失（401），邮箱未授权时读取路径返回
func Unauthorized(c *gin.Context, msg string) {
	fail(c, http.StatusUnauthorized, CodeUnauthorized, msg)
}

// NotFound 资源不存在（404）
func NotFound(c *gin.Context, msg string) {
	fail(c, http.StatusNotFound, CodeNotFound, msg)
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context, msg string) {
	fail(c, http.StatusInternalServerError, CodeInternalError, msg)
}

func fail(c *gin.Context, httpStatus, code int, msg string) {
	c.JSON(httpStatus, Response{Code: code, Msg: msg})
}
