package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"eco-haat/internal/domain"
	"eco-haat/internal/feature/input"
	mdw "eco-haat/internal/transport/http/middleware"
	resp "eco-haat/internal/transport/http/response"
)

func init() {
	// gin 的 binding 校验错误同样按 json 字段名返回
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(input.JSONName)
	}
}

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// AErr 传输层自定义错误（业务错误请直接返回 domain 错误）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Forbidden(msg string) error  { return &AErr{Code: resp.CodeForbidden, Msg: msg} }

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method string
	Path   string
	Binder Binder
	// Auth 要求已登录；Roles 非空时还要求角色匹配。路由级拦截由 Gate 负责，这里是第二道校验
	Auth    bool
	Roles   []domain.Role
	Handler func(c *gin.Context, in *I) (O, error)
}

// Actor 当前会话；未登录为 nil
func Actor(c *gin.Context) *domain.Session { return mdw.SessionFrom(c) }

func allowed(s *domain.Session, roles []domain.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if s.Is(r) {
			return true
		}
	}
	return false
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth || len(a.Roles) > 0 {
			s := Actor(c)
			if !s.Authenticated() {
				Fail(c, domain.ErrUnauthenticated)
				return
			}
			if !allowed(s, a.Roles) {
				Fail(c, domain.ErrPermission)
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default:
		}
		if bindErr != nil {
			Fail(c, bindError(bindErr))
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, &in)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return input.FromError(err)
	}
	return domain.Invalid("", "invalid request body")
}

// Fail 把错误写成统一信封。上游错误只记录，不把细节返回给调用方
func Fail(c *gin.Context, err error) {
	code, msg, data := Classify(err)
	if code >= resp.CodeServerError {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, resp.ErrorWith(code, msg, data))
}

// Classify domain 错误 -> (code, msg, data)
func Classify(err error) (int, string, any) {
	var ve *domain.ValidationError
	var ae *AErr
	switch {
	case errors.As(err, &ve):
		var data any
		if ve.Field != "" {
			data = gin.H{"field": ve.Field}
		}
		return resp.CodeBadRequest, ve.Error(), data
	case errors.As(err, &ae):
		return ae.Code, ae.Error(), nil
	case errors.Is(err, domain.ErrUpstream):
		return resp.CodeUnavailable, "service unavailable, please try again", nil
	case errors.Is(err, domain.ErrUnauthenticated):
		return resp.CodeUnauthorized, "login required", nil
	case errors.Is(err, domain.ErrPermission):
		return resp.CodeForbidden, "forbidden", nil
	case errors.Is(err, domain.ErrNotFound):
		return resp.CodeNotFound, "not found", nil
	case errors.Is(err, domain.ErrInvalidState):
		return resp.CodeConflict, "operation not allowed in the current state", nil
	case errors.Is(err, domain.ErrDuplicate):
		return resp.CodeConflict, "already exists", nil
	}
	return resp.CodeServerError, "internal error", nil
}
