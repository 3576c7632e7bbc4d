package ez

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eco-haat/internal/domain"
	resp "eco-haat/internal/transport/http/response"
	"eco-haat/pkg/utils"
)

// Hook
type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, m *T) error
	BeforeUpdate func(c *gin.Context, m *T) error
	BeforeDelete func(c *gin.Context, id string) error
	AfterWrite   func(c *gin.Context) // 增/改/删成功后（如清缓存）
	ScopeList    func(c *gin.Context, q *gorm.DB) *gorm.DB
	AfterGet     func(c *gin.Context, m *T)
}

type CrudConfig[T any] struct {
	DB    *gorm.DB
	Group *gin.RouterGroup
	Path  string
	New   func() *T

	Hooks CrudHooks[T]

	AllowCreate bool
	AllowList   bool
	AllowGet    bool
	AllowUpdate bool
	AllowDelete bool

	IDField string // 默认 "ID"
	// Owned 为 true 时按 OwnerField（默认 OwnerID/UserID/UID）限定为当前用户的数据
	Owned      bool
	OwnerField string

	IDGen func() string // 默认 utils.NewID

	// Roles 非空时所有操作都要求登录且角色匹配
	Roles []domain.Role

	// 列表排序，为空则按 ID DESC
	OrderBy string
}

func (c *CrudConfig[T]) idFieldCandidates() []string {
	if c.IDField != "" {
		return []string{c.IDField, "ID", "Id"}
	}
	return []string{"ID", "Id"}
}

func (c *CrudConfig[T]) ownerFieldCandidates() []string {
	if c.OwnerField != "" {
		return []string{c.OwnerField, "OwnerID", "UserID", "UID"}
	}
	return []string{"OwnerID", "UserID", "UID"}
}

func getStringFieldPtr(obj any, candidates []string) (*string, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr {
		return nil, false
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	t := v.Type()
	for _, cand := range candidates {
		f, ok := t.FieldByName(cand)
		if !ok || !f.IsExported() || len(f.Index) != 1 {
			continue
		}
		fv := v.Field(f.Index[0])
		if fv.Kind() == reflect.String && fv.CanSet() {
			return fv.Addr().Interface().(*string), true
		}
	}
	return nil, false
}

func writeStringField(obj any, candidates []string, val string) bool {
	p, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return false
	}
	*p = val
	return true
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func toSnake(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			// 连续大写（如 ID、URL）视为一个词
			if i > 0 && (!unicode.IsUpper(rs[i-1]) || (i+1 < len(rs) && unicode.IsLower(rs[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dbError gorm 错误 -> domain 错误
func dbError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrDuplicate
	}
	return domain.Upstream(op, err)
}

// Crud 通用增删改查注册（无需模型实现任何接口）
func Crud[T any](cfg CrudConfig[T]) {
	// 默认放开所有操作
	if !cfg.AllowCreate && !cfg.AllowGet && !cfg.AllowList && !cfg.AllowUpdate && !cfg.AllowDelete {
		cfg.AllowCreate, cfg.AllowList, cfg.AllowGet, cfg.AllowUpdate, cfg.AllowDelete = true, true, true, true, true
	}
	if cfg.IDGen == nil {
		cfg.IDGen = utils.NewID
	}
	if len(cfg.Roles) > 0 {
		cfg.Group = cfg.Group.Group("", func(c *gin.Context) {
			s := Actor(c)
			switch {
			case !s.Authenticated():
				Fail(c, domain.ErrUnauthenticated)
				c.Abort()
			case !allowed(s, cfg.Roles):
				Fail(c, domain.ErrPermission)
				c.Abort()
			}
		})
	}
	ids := cfg.idFieldCandidates()
	owners := cfg.ownerFieldCandidates()

	// scope 生成 id(+owner) 条件；未登录返回 false
	scope := func(c *gin.Context, id string) (*T, bool) {
		f := cfg.New()
		if id != "" {
			_ = writeStringField(f, ids, id)
		}
		if cfg.Owned {
			s := Actor(c)
			if !s.Authenticated() {
				return nil, false
			}
			_ = writeStringField(f, owners, s.UserID)
		}
		return f, true
	}
	afterWrite := func(c *gin.Context) {
		if cfg.Hooks.AfterWrite != nil {
			cfg.Hooks.AfterWrite(c)
		}
	}
	path := strings.TrimSuffix(cfg.Path, "/")

	if cfg.AllowCreate {
		cfg.Group.POST(path, func(c *gin.Context) {
			m := cfg.New()
			if err := c.ShouldBindJSON(m); err != nil {
				Fail(c, bindError(err))
				return
			}
			owner, ok := scope(c, "")
			if !ok {
				Fail(c, domain.ErrUnauthenticated)
				return
			}
			if !writeStringField(m, ids, cfg.IDGen()) {
				Fail(c, &AErr{Code: resp.CodeServerError, Msg: "id field not found"})
				return
			}
			if cfg.Owned {
				p, _ := getStringFieldPtr(owner, owners)
				_ = writeStringField(m, owners, *p)
			}
			if cfg.Hooks.BeforeCreate != nil {
				if err := cfg.Hooks.BeforeCreate(c, m); err != nil {
					Fail(c, err)
					return
				}
			}
			if err := cfg.DB.WithContext(c.Request.Context()).Create(m).Error; err != nil {
				Fail(c, dbError("crud create", err))
				return
			}
			afterWrite(c)
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	if cfg.AllowList {
		cfg.Group.GET(path, func(c *gin.Context) {
			filter, ok := scope(c, "")
			if !ok {
				Fail(c, domain.ErrUnauthenticated)
				return
			}
			page := atoiDefault(c.Query("page"), 1)
			size := atoiDefault(c.Query("size"), 20)
			if size > 100 {
				size = 20
			}

			q := cfg.DB.WithContext(c.Request.Context()).Model(cfg.New()).Where(filter)
			if cfg.Hooks.ScopeList != nil {
				q = cfg.Hooks.ScopeList(c, q)
			}
			var total int64
			if err := q.Count(&total).Error; err != nil {
				Fail(c, dbError("crud count", err))
				return
			}
			if cfg.OrderBy != "" {
				q = q.Order(cfg.OrderBy)
			} else {
				q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: toSnake(ids[0])}, Desc: true})
			}
			items := make([]T, 0, size)
			if err := q.Limit(size).Offset((page - 1) * size).Find(&items).Error; err != nil {
				Fail(c, dbError("crud list", err))
				return
			}
			if cfg.Hooks.AfterGet != nil {
				for i := range items {
					cfg.Hooks.AfterGet(c, &items[i])
				}
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{"items": items, "total": total, "page": page, "size": size}))
		})
	}

	if cfg.AllowGet {
		cfg.Group.GET(path+"/:id", func(c *gin.Context) {
			filter, ok := scope(c, c.Param("id"))
			if !ok {
				Fail(c, domain.ErrUnauthenticated)
				return
			}
			m := cfg.New()
			if err := cfg.DB.WithContext(c.Request.Context()).Where(filter).First(m).Error; err != nil {
				Fail(c, dbError("crud get", err))
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	if cfg.AllowUpdate {
		cfg.Group.PUT(path+"/:id", func(c *gin.Context) {
			id := c.Param("id")
			check, ok := scope(c, id)
			if !ok {
				Fail(c, domain.ErrUnauthenticated)
				return
			}
			// 先确认存在（及归属）
			if err := cfg.DB.WithContext(c.Request.Context()).Where(check).First(cfg.New()).Error; err != nil {
				Fail(c, dbError("crud update", err))
				return
			}
			in := cfg.New()
			if err := c.ShouldBindJSON(in); err != nil {
				Fail(c, bindError(err))
				return
			}
			// 强制保持 ID/Owner
			_ = writeStringField(in, ids, id)
			if cfg.Owned {
				p, _ := getStringFieldPtr(check, owners)
				_ = writeStringField(in, owners, *p)
			}
			if cfg.Hooks.BeforeUpdate != nil {
				if err := cfg.Hooks.BeforeUpdate(c, in); err != nil {
					Fail(c, err)
					return
				}
			}
			if err := cfg.DB.WithContext(c.Request.Context()).Model(cfg.New()).Where(check).Updates(in).Error; err != nil {
				Fail(c, dbError("crud update", err))
				return
			}
			afterWrite(c)
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		})
	}

	if cfg.AllowDelete {
		cfg.Group.DELETE(path+"/:id", func(c *gin.Context) {
			id := c.Param("id")
			filter, ok := scope(c, id)
			if !ok {
				Fail(c, domain.ErrUnauthenticated)
				return
			}
			if cfg.Hooks.BeforeDelete != nil {
				if err := cfg.Hooks.BeforeDelete(c, id); err != nil {
					Fail(c, err)
					return
				}
			}
			res := cfg.DB.WithContext(c.Request.Context()).Where(filter).Delete(cfg.New())
			if res.Error != nil {
				Fail(c, dbError("crud delete", res.Error))
				return
			}
			if res.RowsAffected == 0 {
				Fail(c, domain.ErrNotFound)
				return
			}
			afterWrite(c)
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		})
	}
}
