package services

import (
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// col builds a column from plain Go values: nil is null, numbers are numeric,
// strings are text.
func col(name string, values ...any) models.Column {
	c := models.Column{Name: name, Values: make([]models.Value, len(values))}
	for i, v := range values {
		switch x := v.(type) {
		case nil:
			c.Values[i] = models.NullValue()
		case int:
			c.Values[i] = models.NumberValue(float64(x))
		case float64:
			c.Values[i] = models.NumberValue(x)
		case string:
			c.Values[i] = models.TextValue(x)
		default:
			panic("unsupported test value")
		}
	}
	return c
}

func table(name string, columns ...models.Column) *models.Table {
	return &models.Table{Name: name, Columns: columns}
}

// scenarioA is the orders/customers pair.
func scenarioA() models.TableSet {
	return models.TableSet{
		table("orders.csv",
			col("order_id", 1, 2, 3, 4),
			col("customer_id", 10, 10, 20, 30),
			col("amount", 9.5, 12.0, 9.5, 40.25),
		),
		table("customers.csv",
			col("customer_id", 10, 20, 30),
			col("name", "Ada", "Grace", "Linus"),
		),
	}
}

// scenarioC has one table whose key is referenced by two others.
func scenarioC() models.TableSet {
	return models.TableSet{
		table("products.csv",
			col("product_id", 1, 2, 3),
			col("title", "lamp", "desk", "lamp"),
		),
		table("sales.csv",
			col("sale_ref", "s1", "s2", "s3", "s4"),
			col("product_id", 1, 1, 2, 3),
		),
		table("returns.csv",
			col("return_ref", "r1", "r2"),
			col("product_id", 2, 2),
		),
	}
}
