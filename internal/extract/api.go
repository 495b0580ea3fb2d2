package extract

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"logiflow/internal/dataset"
)

// DefaultBaseURL is the public Fake Store API endpoint.
const DefaultBaseURL = "https://fakestoreapi.com"

// apiSourceName is stamped into the source column of every API dataset.
const apiSourceName = "fake_store_api"

// APIClient extracts products, carts and users from the Fake Store API and
// reshapes them into flat datasets.
type APIClient struct {
	BaseURL string
	HTTP    *Client
	Log     zerolog.Logger

	// RawDir, when non-empty, receives a CSV snapshot of every fetched
	// dataset (<name>_raw.csv).
	RawDir string

	now func() time.Time
}

// NewAPIClient returns an APIClient against baseURL (DefaultBaseURL when
// empty) using the given retrying HTTP client.
func NewAPIClient(baseURL string, httpClient *Client, log zerolog.Logger) *APIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = NewClient(ClientConfig{})
	}
	return &APIClient{
		BaseURL: baseURL,
		HTTP:    httpClient,
		Log:     log,
		now:     time.Now,
	}
}

// Wire shapes of the Fake Store API payloads. Geolocation coordinates arrive
// as strings and stay strings.

type apiProduct struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Price       float64    `json:"price"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Image       string     `json:"image"`
	Rating      *apiRating `json:"rating"`
}

type apiRating struct {
	Rate  float64 `json:"rate"`
	Count int64   `json:"count"`
}

type apiCart struct {
	ID       int64         `json:"id"`
	UserID   int64         `json:"userId"`
	Date     string        `json:"date"`
	Products []apiCartItem `json:"products"`
}

type apiCartItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

type apiUser struct {
	ID       int64      `json:"id"`
	Email    string     `json:"email"`
	Username string     `json:"username"`
	Phone    string     `json:"phone"`
	Name     apiName    `json:"name"`
	Address  apiAddress `json:"address"`
}

type apiName struct {
	First string `json:"firstname"`
	Last  string `json:"lastname"`
}

type apiAddress struct {
	City        string `json:"city"`
	Street      string `json:"street"`
	Zipcode     string `json:"zipcode"`
	Geolocation apiGeo `json:"geolocation"`
}

type apiGeo struct {
	Lat  string `json:"lat"`
	Long string `json:"long"`
}

// FetchProducts fetches /products and flattens the nested rating object into
// rating_rate and rating_count.
func (a *APIClient) FetchProducts(ctx context.Context) (*dataset.Dataset, error) {
	var products []apiProduct
	if err := a.HTTP.GetJSON(ctx, a.BaseURL+"/products", &products); err != nil {
		return nil, err
	}

	ds := dataset.New("id", "title", "price", "description", "category", "image",
		"rating_rate", "rating_count")
	for _, p := range products {
		row := dataset.Row{
			"id":          p.ID,
			"title":       p.Title,
			"price":       p.Price,
			"description": p.Description,
			"category":    p.Category,
			"image":       p.Image,
		}
		if p.Rating != nil {
			row["rating_rate"] = p.Rating.Rate
			row["rating_count"] = p.Rating.Count
		}
		ds.Append(row)
	}
	a.stamp(ds)

	a.Log.Info().Int("count", ds.Len()).Msg("products fetched")
	return ds, nil
}

// FetchCarts fetches /carts and expands each cart's product list into one
// order row per cart product.
func (a *APIClient) FetchCarts(ctx context.Context) (*dataset.Dataset, error) {
	var carts []apiCart
	if err := a.HTTP.GetJSON(ctx, a.BaseURL+"/carts", &carts); err != nil {
		return nil, err
	}

	ds := dataset.New("order_id", "customer_id", "order_date", "product_id", "quantity")
	for _, cart := range carts {
		for _, item := range cart.Products {
			ds.Append(dataset.Row{
				"order_id":    cart.ID,
				"customer_id": cart.UserID,
				"order_date":  cart.Date,
				"product_id":  item.ProductID,
				"quantity":    item.Quantity,
			})
		}
	}
	a.stamp(ds)

	a.Log.Info().Int("count", ds.Len()).Msg("carts/orders fetched")
	return ds, nil
}

// FetchUsers fetches /users and flattens the nested name, address and
// geolocation objects.
func (a *APIClient) FetchUsers(ctx context.Context) (*dataset.Dataset, error) {
	var users []apiUser
	if err := a.HTTP.GetJSON(ctx, a.BaseURL+"/users", &users); err != nil {
		return nil, err
	}

	ds := dataset.New("user_id", "email", "username", "phone",
		"first_name", "last_name", "city", "street", "zipcode", "lat", "lng")
	for _, u := range users {
		ds.Append(dataset.Row{
			"user_id":    u.ID,
			"email":      u.Email,
			"username":   u.Username,
			"phone":      u.Phone,
			"first_name": u.Name.First,
			"last_name":  u.Name.Last,
			"city":       u.Address.City,
			"street":     u.Address.Street,
			"zipcode":    u.Address.Zipcode,
			"lat":        u.Address.Geolocation.Lat,
			"lng":        u.Address.Geolocation.Long,
		})
	}
	a.stamp(ds)

	a.Log.Info().Int("count", ds.Len()).Msg("users fetched")
	return ds, nil
}

// FetchAll fetches the three endpoints concurrently and returns the datasets
// keyed products, orders and users. Any endpoint failure (after the client's
// own retries) fails the whole extraction.
func (a *APIClient) FetchAll(ctx context.Context) (map[string]*dataset.Dataset, error) {
	a.Log.Info().Str("base_url", a.BaseURL).Msg("starting api extraction")

	var products, orders, users *dataset.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = a.FetchProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = a.FetchCarts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = a.FetchUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := map[string]*dataset.Dataset{
		"products": products,
		"orders":   orders,
		"users":    users,
	}

	if a.RawDir != "" {
		a.saveRaw(data)
	}

	a.Log.Info().
		Int("products", products.Len()).
		Int("orders", orders.Len()).
		Int("users", users.Len()).
		Msg("api extraction complete")
	return data, nil
}

// stamp adds the extraction metadata columns every API dataset carries.
func (a *APIClient) stamp(ds *dataset.Dataset) {
	ds.SetColumn("extracted_at", a.now().UTC())
	ds.SetColumn("source", apiSourceName)
}

// saveRaw snapshots the fetched datasets under RawDir. Snapshot failures are
// logged, not fatal: the raw copy is a convenience, not pipeline state.
func (a *APIClient) saveRaw(data map[string]*dataset.Dataset) {
	for _, name := range []string{"products", "orders", "users"} {
		ds, ok := data[name]
		if !ok {
			continue
		}
		path, err := writeDatasetCSV(a.RawDir, name+"_raw.csv", ds)
		if err != nil {
			a.Log.Warn().Err(err).Str("dataset", name).Msg("raw snapshot failed")
			continue
		}
		a.Log.Info().Str("file", path).Msg("saved raw data")
	}
}
