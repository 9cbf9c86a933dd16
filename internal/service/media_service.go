package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/storage"
)

var (
	youtubeHosts = map[string]bool{
		"youtube.com":     true,
		"youtu.be":        true,
		"www.youtube.com": true,
		"m.youtube.com":   true,
	}
	videoExtensions = map[string]bool{
		".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".wmv": true,
	}
	audioExtensions = map[string]bool{
		".wav": true, ".mp3": true, ".m4a": true, ".ogg": true, ".flac": true, ".webm": true,
	}
)

// UploadedFile 上传文件，校验只依赖文件名和大小，通过后才读取内容
type UploadedFile struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

func fileExt(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsYouTubeURL 仅接受 YouTube 官方域名
func IsYouTubeURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return youtubeHosts[strings.ToLower(u.Hostname())]
}

// AudioCache 同一用户重复提取同一链接时复用已存储的音频
type AudioCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type MediaService struct {
	quota      *QuotaService
	store      storage.Store
	downloader engine.AudioDownloader
	extractor  engine.AudioExtractor
	tempDir    string
	cache      AudioCache
}

// NewMediaService cache 为 nil 时每次都重新下载
func NewMediaService(
	quota *QuotaService,
	store storage.Store,
	downloader engine.AudioDownloader,
	extractor engine.AudioExtractor,
	tempDir string,
	cache AudioCache,
) *MediaService {
	return &MediaService{
		quota:      quota,
		store:      store,
		downloader: downloader,
		extractor:  extractor,
		tempDir:    tempDir,
		cache:      cache,
	}
}

// ExtractYouTube 下载 YouTube 音轨并存入 audio-files
func (s *MediaService) ExtractYouTube(ctx context.Context, rc RequestContext, rawURL string) (*dto.MediaResponse, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrEmptyInput
	}
	if !IsYouTubeURL(rawURL) {
		return nil, ErrInvalidYouTubeURL
	}

	// 音频引用按用户隔离，缓存键必须带上用户
	cacheKey := fmt.Sprintf("%d:%s", rc.UserID, rawURL)
	if resp := s.cachedAudio(ctx, cacheKey); resp != nil {
		s.quota.recordActivityBestEffort(rc.UserID, model.ActivityYoutubeExtraction, rawURL, 1)
		return resp, nil
	}

	workDir, err := s.workDir("youtube")
	if err != nil {
		return nil, persistenceError(err)
	}
	defer os.RemoveAll(workDir)

	audioPath, err := s.downloader.DownloadAudio(ctx, rawURL, workDir)
	if err != nil {
		return nil, processingError(err)
	}

	resp, err := s.storeAudio(ctx, rc.UserID, audioPath, fmt.Sprintf("youtube_%s.wav", shortID()))
	if err != nil {
		return nil, err
	}

	s.cacheAudio(ctx, cacheKey, resp)
	s.quota.recordActivityBestEffort(rc.UserID, model.ActivityYoutubeExtraction, rawURL, 1)
	return resp, nil
}

// cachedAudio 命中时重新签发下载链接，缓存异常按未命中处理
func (s *MediaService) cachedAudio(ctx context.Context, key string) *dto.MediaResponse {
	if s.cache == nil {
		return nil
	}
	val, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("Failed to read youtube cache: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	var resp dto.MediaResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil || resp.AudioRef == "" {
		log.Printf("Discarding malformed youtube cache entry: %v", err)
		return nil
	}
	link, err := s.store.PresignedURL(ctx, resp.AudioRef, storage.DefaultPresignExpiry)
	if err != nil {
		log.Printf("Failed to presign cached audio %s: %v", resp.AudioRef, err)
		return nil
	}
	resp.DownloadURL = link
	return &resp
}

func (s *MediaService) cacheAudio(ctx context.Context, key string, resp *dto.MediaResponse) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data)); err != nil {
		log.Printf("Failed to write youtube cache: %v", err)
	}
}

// UploadLimit 当前用户单个视频上传的字节上限
func (s *MediaService) UploadLimit(userID int64) (int64, error) {
	return s.quota.UploadLimitBytes(userID)
}

// ExtractVideo 从上传视频抽取音轨并存入 audio-files
func (s *MediaService) ExtractVideo(ctx context.Context, rc RequestContext, file *UploadedFile) (*dto.MediaResponse, error) {
	if file == nil || file.Filename == "" || file.Size == 0 {
		return nil, ErrEmptyInput
	}
	if !videoExtensions[fileExt(file.Filename)] {
		return nil, ErrUnsupportedVideoFormat
	}
	if err := checkAllowed(ErrFileTooLarge)(s.quota.FileSizeAllowed(rc.UserID, sizeInMB(file.Size))); err != nil {
		return nil, err
	}

	workDir, err := s.workDir("video")
	if err != nil {
		return nil, persistenceError(err)
	}
	defer os.RemoveAll(workDir)

	videoPath, err := writeTempFile(workDir, filepath.Base(file.Filename), file.Reader)
	if err != nil {
		return nil, persistenceError(err)
	}

	audioPath, err := s.extractor.ExtractAudio(ctx, videoPath, filepath.Join(workDir, "out"))
	if err != nil {
		return nil, processingError(err)
	}

	base := strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	resp, err := s.storeAudio(ctx, rc.UserID, audioPath, fmt.Sprintf("%s_%s.wav", base, shortID()))
	if err != nil {
		return nil, err
	}

	s.quota.recordActivityBestEffort(rc.UserID, model.ActivityVideoExtraction, file.Filename, 1)
	return resp, nil
}

func (s *MediaService) storeAudio(ctx context.Context, userID int64, audioPath, filename string) (*dto.MediaResponse, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, persistenceError(fmt.Errorf("read extracted audio: %w", err))
	}

	ref, err := s.store.Put(ctx, storage.BucketAudio, storage.ObjectKey(userID, filename), data, "audio/wav")
	if err != nil {
		return nil, persistenceError(err)
	}

	resp := &dto.MediaResponse{
		AudioRef:  ref,
		Filename:  filename,
		SizeBytes: int64(len(data)),
	}
	if u, err := s.store.PresignedURL(ctx, ref, storage.DefaultPresignExpiry); err == nil {
		resp.DownloadURL = u
	}
	return resp, nil
}

func (s *MediaService) workDir(prefix string) (string, error) {
	base := s.tempDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, prefix+"_*")
}

func writeTempFile(dir, name string, r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("no content for %s", name)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return path, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
