package docker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/shinji-kodama/kollacli/internal/model"
)

// LabelKollaVersion is set on every image built by Kolla.
const LabelKollaVersion = "kolla_version"

// Container describes one Kolla container on the local host.
type Container struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	State        string `json:"state"`
	Status       string `json:"status"`
	KollaVersion string `json:"kolla_version"`
}

// Running reports whether the container is running.
func (c Container) Running() bool {
	return c.State == "running"
}

// ListKollaContainers returns every container (running or not) created
// from a Kolla image, sorted by name.
func (c *Client) ListKollaContainers(ctx context.Context) ([]Container, error) {
	summaries, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelKollaVersion)),
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerError, "failed to list Docker containers", err)
	}

	out := make([]Container, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, fromSummary(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func fromSummary(s container.Summary) Container {
	name := ""
	if len(s.Names) > 0 {
		name = strings.TrimPrefix(s.Names[0], "/")
	}
	return Container{
		ID:           s.ID,
		Name:         name,
		Image:        s.Image,
		State:        string(s.State),
		Status:       s.Status,
		KollaVersion: s.Labels[LabelKollaVersion],
	}
}

// StopContainer stops a container with the daemon's default timeout.
func (c *Client) StopContainer(ctx context.Context, id string) error {
	if err := c.inner.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return model.WrapCLIError(model.ExitDockerError, fmt.Sprintf("failed to stop container %q", id), err)
	}
	return nil
}

// RemoveContainer removes a container and its anonymous volumes. Running
// containers are killed first.
func (c *Client) RemoveContainer(ctx context.Context, id string) error {
	err := c.inner.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true})
	if err != nil {
		return model.WrapCLIError(model.ExitDockerError, fmt.Sprintf("failed to remove container %q", id), err)
	}
	return nil
}

// DestroyResult lists the containers a destroy removed.
type DestroyResult struct {
	Stopped []string `json:"stopped"`
	Removed []string `json:"removed"`
}

// DestroyKollaContainers removes every Kolla container. With stop set,
// running containers are stopped gracefully before removal instead of
// being killed.
func (c *Client) DestroyKollaContainers(ctx context.Context, stop bool) (*DestroyResult, error) {
	containers, err := c.ListKollaContainers(ctx)
	if err != nil {
		return nil, err
	}

	res := &DestroyResult{Stopped: []string{}, Removed: []string{}}
	for _, ctr := range containers {
		if stop && ctr.Running() {
			if err := c.StopContainer(ctx, ctr.ID); err != nil {
				return res, err
			}
			res.Stopped = append(res.Stopped, ctr.Name)
		}
		if err := c.RemoveContainer(ctx, ctr.ID); err != nil {
			return res, err
		}
		res.Removed = append(res.Removed, ctr.Name)
	}
	return res, nil
}
