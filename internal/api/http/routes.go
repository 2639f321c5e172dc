package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/zukan/internal/store"
	"github.com/i474232898/zukan/internal/zukan"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *zukan.Service) {
	v1 := app.Group("/api/v1")

	v1.Post("/locations/reverse", func(c *fiber.Ctx) error {
		var req reverseRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lon are required and must be valid coordinates")
		}

		address, err := service.ResolveLocation(c.UserContext(), *req.Lat, *req.Lon)
		if err != nil {
			if errors.Is(err, zukan.ErrLocationUnresolved) {
				return fiber.NewError(fiber.StatusBadGateway, "no address found for the selected point")
			}
			return toHTTPError(err)
		}

		return c.JSON(fiber.Map{
			"address": address,
			"lat":     *req.Lat,
			"lon":     *req.Lon,
		})
	})

	v1.Post("/entries", func(c *fiber.Ctx) error {
		in, err := bindEntryForm(c)
		if err != nil {
			return err
		}

		entry, err := service.Build(c.UserContext(), in)
		if err != nil {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	v1.Get("/entries/pending", func(c *fiber.Ctx) error {
		entry, ok := service.Pending()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no pending entry")
		}
		return c.JSON(entry)
	})

	v1.Post("/entries/pending/save", func(c *fiber.Ctx) error {
		entry, err := service.Save()
		if err != nil {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	v1.Get("/entries", func(c *fiber.Ctx) error {
		entries := service.List()
		return c.JSON(fiber.Map{
			"count":   len(entries),
			"entries": entries,
		})
	})

	v1.Get("/entries/:id/image", func(c *fiber.Ctx) error {
		entry, err := service.Get(c.Params("id"))
		if err != nil {
			return toHTTPError(err)
		}

		img, err := zukan.DecodeImage(entry.Image)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "stored image is corrupt")
		}
		c.Set(fiber.HeaderContentType, entry.ImageType)
		return c.Send(img)
	})
}

// ErrorHandler renders every error returned by a handler as a JSON body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// toHTTPError maps service errors onto status codes for the central error
// handler.
func toHTTPError(err error) error {
	var verr *zukan.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(fiber.StatusBadRequest, verr.Error())
	case errors.Is(err, zukan.ErrLocationUnresolved):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, zukan.ErrNoPendingEntry):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to process request")
	}
}

// reverseRequest is the body of a map click.
type reverseRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

// bindEntryForm reads the multipart entry form. Missing fields are left empty
// for the service to report; only malformed numbers and unsupported uploads
// are rejected here.
func bindEntryForm(c *fiber.Ctx) (zukan.Input, error) {
	in := zukan.Input{
		SubjectName: c.FormValue("name"),
		CaptureDate: c.FormValue("date"),
		CaptureTime: c.FormValue("time"),
		Style:       strings.TrimSpace(c.FormValue("style")),
		StyleText:   strings.TrimSpace(c.FormValue("style_text")),
	}

	loc, err := parseLocation(c)
	if err != nil {
		return in, err
	}
	in.Location = loc

	if v := strings.TrimSpace(c.FormValue("max_length")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return in, fiber.NewError(fiber.StatusBadRequest, "max_length must be a non-negative integer")
		}
		in.MaxLength = n
	}

	fh, err := c.FormFile("image")
	if err == nil {
		img, err := readUpload(fh)
		if err != nil {
			return in, fiber.NewError(fiber.StatusBadRequest, "failed to read image upload")
		}
		if len(img) > 0 && !zukan.IsSupportedImage(img) {
			return in, fiber.NewError(fiber.StatusUnsupportedMediaType, "image must be a PNG or JPEG file")
		}
		in.Image = img
	}

	return in, nil
}

// parseLocation prefers a map point (lat and lon) over a typed place name.
func parseLocation(c *fiber.Ctx) (zukan.LocationSource, error) {
	latStr := strings.TrimSpace(c.FormValue("lat"))
	lonStr := strings.TrimSpace(c.FormValue("lon"))

	if latStr != "" || lonStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		if errLat != nil || errLon != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "lat and lon must both be numbers")
		}
		return zukan.MapLocation{Lat: lat, Lon: lon}, nil
	}

	if name := c.FormValue("location"); strings.TrimSpace(name) != "" {
		return zukan.TextLocation(name), nil
	}
	return nil, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
