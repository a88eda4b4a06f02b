package local

import (
	"context"
	"errors"

	registryapp "tessera/contexts/naming/registry-service/application"
	registryerrors "tessera/contexts/naming/registry-service/domain/errors"
	registryservices "tessera/contexts/naming/registry-service/domain/services"
	registryports "tessera/contexts/naming/registry-service/ports"
)

// RegistryAdapter exposes the naming context to the factory through its
// own port, keeping the context boundary at a single seam.
type RegistryAdapter struct {
	Registry registryapp.Service
}

func (a RegistryAdapter) HasUserBinding(ctx context.Context, owner string) (bool, error) {
	_, err := a.Registry.Repo.GetBindingByOwner(ctx, registryservices.RootNode, owner)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, registryerrors.ErrBindingNotFound) {
		return false, nil
	}
	return false, err
}

func (a RegistryAdapter) PolicyNode(ctx context.Context, owner string, label string) (string, error) {
	binding, err := a.Registry.Repo.GetBindingByOwner(ctx, registryservices.RootNode, owner)
	if err != nil {
		return "", err
	}
	return registryservices.CalculateNode(binding.Node, label), nil
}

func (a RegistryAdapter) BindPolicy(ctx context.Context, owner string, label string, target string) (string, error) {
	binding, err := a.Registry.BindPolicy(ctx, registryports.BindPolicyInput{
		Owner:  owner,
		Label:  label,
		Target: target,
	})
	if err != nil {
		return "", err
	}
	return binding.Node, nil
}

func (a RegistryAdapter) ReleasePolicy(ctx context.Context, owner string, node string) error {
	return a.Registry.ReleasePolicy(ctx, owner, node)
}
