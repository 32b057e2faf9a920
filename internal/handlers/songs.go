package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velmark/soundwave/internal/jwtmiddleware"
	"github.com/velmark/soundwave/internal/mediastore"
	"github.com/velmark/soundwave/internal/service/songs"
)

const dateLayout = "2006-01-02"

type SongHandler struct {
	Songs *songs.Service
	Media mediastore.Store
}

// Create uploads the cover image and audio track ahead of the catalog write;
// both files are required.
func (h *SongHandler) Create(c echo.Context) error {
	claims := jwtmiddleware.CurrentClaims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	imageFile, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image and audio files are required")
	}
	audioFile, err := c.FormFile("audio")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image and audio files are required")
	}

	name := c.FormValue("name")
	artist := c.FormValue("artist")
	if name == "" || artist == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and artist are required")
	}
	releasedDate, err := time.Parse(dateLayout, c.FormValue("releasedDate"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "releasedDate must be YYYY-MM-DD")
	}

	ctx := c.Request().Context()
	imageRes, err := h.upload(c, imageFile, mediastore.KindImage)
	if err != nil {
		return err
	}
	audioRes, err := h.upload(c, audioFile, mediastore.KindAudio)
	if err != nil {
		return err
	}

	song, err := h.Songs.Create(ctx, songs.CreateParams{
		Name:         name,
		Artist:       artist,
		ReleasedDate: releasedDate,
		Duration:     audioRes.Duration / 60,
		Lyrics:       c.FormValue("lyrics"),
		AudioURL:     audioRes.SecureURL,
		ImageURL:     imageRes.SecureURL,
	}, claims.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, song)
}

func (h *SongHandler) GetAll(c echo.Context) error {
	all, err := h.Songs.GetAll(c.Request().Context(), c.QueryParam("name"), c.QueryParam("artist"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, all)
}

func (h *SongHandler) GetOne(c echo.Context) error {
	id, err := songID(c)
	if err != nil {
		return err
	}
	song, err := h.Songs.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, song)
}

func (h *SongHandler) Patch(c echo.Context) error {
	id, err := songID(c)
	if err != nil {
		return err
	}

	var req struct {
		Name         *string `json:"name"`
		Artist       *string `json:"artist"`
		ReleasedDate *string `json:"releasedDate"`
		Lyrics       *string `json:"lyrics"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	params := songs.UpdateParams{
		Name:   req.Name,
		Artist: req.Artist,
		Lyrics: req.Lyrics,
	}
	if req.ReleasedDate != nil {
		released, err := time.Parse(dateLayout, *req.ReleasedDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "releasedDate must be YYYY-MM-DD")
		}
		params.ReleasedDate = &released
	}

	song, err := h.Songs.Update(c.Request().Context(), id, params)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, song)
}

func (h *SongHandler) Delete(c echo.Context) error {
	id, err := songID(c)
	if err != nil {
		return err
	}
	msg, err := h.Songs.Delete(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (h *SongHandler) UpdateImage(c echo.Context) error {
	id, err := songID(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("song-image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "song image file is required")
	}

	res, err := h.upload(c, fh, mediastore.KindImage)
	if err != nil {
		return err
	}
	song, err := h.Songs.ReplaceImage(c.Request().Context(), id, res.SecureURL)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, song)
}

func (h *SongHandler) UpdateAudio(c echo.Context) error {
	id, err := songID(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("song-audio")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "song audio file is required")
	}

	res, err := h.upload(c, fh, mediastore.KindAudio)
	if err != nil {
		return err
	}
	song, err := h.Songs.ReplaceAudio(c.Request().Context(), id, res.SecureURL)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, song)
}

func (h *SongHandler) upload(c echo.Context, fh *multipart.FileHeader, kind mediastore.Kind) (*mediastore.UploadResult, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	res, err := h.Media.Upload(c.Request().Context(), f, fh.Filename, kind)
	if err != nil {
		return nil, httpError(err)
	}
	return res, nil
}

func songID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid song id")
	}
	return uint(id), nil
}
