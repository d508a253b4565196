package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/semafind/semaknn/dataset"
	"github.com/semafind/semaknn/distance"
	"github.com/semafind/semaknn/knn"
	"github.com/semafind/semaknn/models"
)

type KNNHandlers struct {
	store    *dataset.Store
	defaultK int
	workers  int
	metrics  *httpMetrics
}

func NewKNNHandlers(store *dataset.Store, defaultK, workers int, metrics *httpMetrics) *KNNHandlers {
	return &KNNHandlers{store: store, defaultK: defaultK, workers: workers, metrics: metrics}
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// ---------------------------

type DistancesRequest struct {
	Train      [][]float64 `json:"train"`
	Prediction [][]float64 `json:"prediction"`
	Row        int         `json:"row"`
}

func (r *DistancesRequest) Validate() error {
	if len(r.Train) == 0 {
		return errors.New("train must not be empty")
	}
	if len(r.Prediction) == 0 {
		return errors.New("prediction must not be empty")
	}
	return nil
}

type DistancesResponse struct {
	Metric    string            `json:"metric"`
	Distances models.DistVector `json:"distances"`
}

// ComputeDistances runs the kernel once and returns the unsorted distances.
func (h *KNNHandlers) ComputeDistances(c *gin.Context) {
	var req DistancesRequest
	if err := bindBody(c, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	train, err := models.MatrixFromRows(req.Train)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("train: %w", err))
		return
	}
	prediction, err := models.MatrixFromRows(req.Prediction)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("prediction: %w", err))
		return
	}
	// ---------------------------
	out := models.NewDistVector(train.Rows)
	if err := distance.ComputeDistancesFor(out, train, prediction, req.Row); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	h.metrics.observePredictionRows("distances", 1)
	c.JSON(http.StatusOK, DistancesResponse{Metric: models.DistanceSquaredEuclidean, Distances: out})
}

// ---------------------------

type PutDatasetRequest struct {
	Vectors [][]float64 `json:"vectors"`
	Labels  []string    `json:"labels"`
}

func (r *PutDatasetRequest) Validate() error {
	if len(r.Vectors) == 0 {
		return errors.New("vectors must not be empty")
	}
	return nil
}

func (h *KNNHandlers) PutDataset(c *gin.Context) {
	var req PutDatasetRequest
	if err := bindBody(c, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	features, err := models.MatrixFromRows(req.Vectors)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	ds, err := dataset.New(c.Param("name"), features, req.Labels)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.store.Put(ds); err != nil {
		c.Error(err)
		abortWithError(c, http.StatusInternalServerError, err)
		log.Error().Err(err).Str("name", ds.Name).Msg("PutDataset failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "dataset stored", "checksum": fmt.Sprintf("%016x", ds.Checksum)})
}

type DatasetInfo struct {
	Name     string `json:"name"`
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
	Labelled bool   `json:"labelled"`
	Checksum string `json:"checksum"`
}

func (h *KNNHandlers) getDataset(c *gin.Context) (dataset.Dataset, bool) {
	ds, err := h.store.Get(c.Param("name"))
	switch {
	case err == nil:
		return ds, true
	case errors.Is(err, dataset.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err)
	default:
		c.Error(err)
		abortWithError(c, http.StatusInternalServerError, err)
		log.Error().Err(err).Str("name", c.Param("name")).Msg("getDataset failed")
	}
	return dataset.Dataset{}, false
}

func (h *KNNHandlers) GetDataset(c *gin.Context) {
	ds, ok := h.getDataset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, DatasetInfo{
		Name:     ds.Name,
		Rows:     ds.Features.Rows,
		Cols:     ds.Features.Cols,
		Labelled: ds.Labels != nil,
		Checksum: fmt.Sprintf("%016x", ds.Checksum),
	})
}

func (h *KNNHandlers) ListDatasets(c *gin.Context) {
	names, err := h.store.List()
	if err != nil {
		c.Error(err)
		abortWithError(c, http.StatusInternalServerError, err)
		log.Error().Err(err).Msg("ListDatasets failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": names})
}

func (h *KNNHandlers) DeleteDataset(c *gin.Context) {
	err := h.store.Delete(c.Param("name"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "dataset deleted"})
	case errors.Is(err, dataset.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err)
	default:
		c.Error(err)
		abortWithError(c, http.StatusInternalServerError, err)
		log.Error().Err(err).Str("name", c.Param("name")).Msg("DeleteDataset failed")
	}
}

// ---------------------------

type PredictRequest struct {
	Vectors  [][]float64 `json:"vectors"`
	K        int         `json:"k"`
	Weighted bool        `json:"weighted"`
}

func (r *PredictRequest) Validate() error {
	if len(r.Vectors) == 0 {
		return errors.New("vectors must not be empty")
	}
	if r.K < 0 {
		return knn.ErrInvalidK
	}
	return nil
}

type PredictResponse struct {
	Metric      string           `json:"metric"`
	K           int              `json:"k"`
	Weighted    bool             `json:"weighted"`
	Predictions []knn.Prediction `json:"predictions"`
}

// Predict classifies the request vectors against a stored labelled dataset.
func (h *KNNHandlers) Predict(c *gin.Context) {
	var req PredictRequest
	if err := bindBody(c, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if req.K == 0 {
		req.K = h.defaultK
	}
	prediction, err := models.MatrixFromRows(req.Vectors)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	ds, ok := h.getDataset(c)
	if !ok {
		return
	}
	if ds.Labels == nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("dataset %s has no labels", ds.Name))
		return
	}
	// ---------------------------
	clf := knn.NewClassifier(req.K, h.workers)
	clf.Weighted = req.Weighted
	if err := clf.Fit(ds.Features, ds.Labels); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	results, err := clf.Predict(c.Request.Context(), prediction)
	switch {
	case err == nil:
	case errors.Is(err, distance.ErrInvalidArgument):
		abortWithError(c, http.StatusBadRequest, err)
		return
	default:
		c.Error(err)
		abortWithError(c, http.StatusInternalServerError, err)
		log.Error().Err(err).Str("name", ds.Name).Msg("Predict failed")
		return
	}
	h.metrics.observePredictionRows("predict", prediction.Rows)
	c.JSON(http.StatusOK, PredictResponse{Metric: models.DistanceSquaredEuclidean, K: req.K, Weighted: req.Weighted, Predictions: results})
}
