package product

import (
	"strings"

	"eco-haat/internal/domain"
	"eco-haat/internal/feature/input"
)

// Input 卖家提交/编辑商品的原始入参
type Input struct {
	Name          string   `json:"name"           validate:"required,max=255"`
	Description   string   `json:"description"    validate:"max=5000"`
	Price         float64  `json:"price"          validate:"gt=0"`
	Material      string   `json:"material"       validate:"required,max=64"`
	CategoryID    *string  `json:"category_id"`
	Images        []string `json:"images"         validate:"max=4,dive,http_url"`
	StockQuantity *int     `json:"stock_quantity" validate:"omitempty,gte=0"`
}

func (in Input) normalize() Input {
	out := in
	out.Name = input.Text(in.Name)
	out.Description = input.Text(in.Description)
	out.Material = input.Text(in.Material)
	if in.CategoryID != nil {
		if id := strings.TrimSpace(*in.CategoryID); id != "" {
			out.CategoryID = &id
		} else {
			out.CategoryID = nil
		}
	}
	out.Images = out.Images[:0:0]
	for _, u := range in.Images {
		if u = strings.TrimSpace(u); u != "" {
			out.Images = append(out.Images, u)
		}
	}
	return out
}

// fields 校验并转换为可持久化字段
func (in Input) fields() (domain.ProductFields, error) {
	n := in.normalize()
	if err := input.Struct(n); err != nil {
		return domain.ProductFields{}, err
	}
	stock := domain.DefaultStock
	if n.StockQuantity != nil && *n.StockQuantity > 0 {
		stock = *n.StockQuantity
	}
	return domain.ProductFields{
		Name:          n.Name,
		Description:   n.Description,
		Price:         n.Price,
		Material:      n.Material,
		CategoryID:    n.CategoryID,
		Images:        n.Images,
		StockQuantity: stock,
	}, nil
}
